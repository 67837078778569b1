package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/app"
	"github.com/avoronov/huddle/internal/config"
	"github.com/avoronov/huddle/internal/core"
)

// Controller terminates signaling WebSockets and feeds decoded events to
// the router. One instance serves all connections.
type Controller struct {
	Router  *app.Router
	Limiter *app.JoinRateLimiter
	Cfg     *config.Config
}

func NewController(router *app.Router, limiter *app.JoinRateLimiter, cfg *config.Config) *Controller {
	return &Controller{Router: router, Limiter: limiter, Cfg: cfg}
}

// wsConn adapts a websocket to core.SignalConn. Sends go through a
// buffered channel drained by the write pump; a full buffer is reported
// as backpressure, never blocked on.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrTargetUnreachable
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection's lifecycle:
// register, pump, and on exit exactly one pass through the cleanup path.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	connID := ctl.Router.Registry.Register(conn, cancel)
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("token", token).Msg("new WS connection")

	sess := &session{ctl: ctl, connID: connID, token: token, conn: conn}
	// ReadMessage only returns on socket close; cancellation (kick,
	// server shutdown) must close the socket to unblock the read pump.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sess)
}

// teardown is the single disconnect path shared by read errors, context
// cancellation and server shutdown.
func (ctl *Controller) teardown(s *session) {
	ctl.Router.Registry.ShutdownOnce(s.connID, func() {
		ctl.Router.OnLeaveOrDisconnect(s.connID)
	})
	s.conn.Close()
}
