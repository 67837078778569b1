package signal_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	router "github.com/avoronov/huddle/internal/adapters/http"
	"github.com/avoronov/huddle/internal/adapters/signal"
	"github.com/avoronov/huddle/internal/app"
	"github.com/avoronov/huddle/internal/config"
)

const readWait = 3 * time.Second

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Mode:             "release",
		StaticPath:       t.TempDir(),
		Secret:           "test-secret",
		ReadLimit:        32768,
		PingPeriod:       50 * time.Second,
		SendBuffer:       32,
		JoinRateLimit:    100,
		JoinRateInterval: time.Minute,
	}
	registry := app.NewRegistry()
	rooms := app.NewDirectory()
	rt := app.NewRouter(registry, rooms, app.DropPolicy{})
	limiter := app.NewJoinRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval)
	ctl := signal.NewController(rt, limiter, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, ctl, rooms))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(v))
}

func recv(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(readWait)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func join(t *testing.T, c *websocket.Conn, room, participant string) (self string) {
	t.Helper()
	send(t, c, map[string]any{"type": "join-room", "room": room, "participant": participant})
	m := recv(t, c)
	require.Equal(t, "joined", m["type"])
	require.Equal(t, room, m["room"])
	self, _ = m["self"].(string)
	require.NotEmpty(t, self)
	return self
}

func TestSignalTwoClientMeeting(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	aliceID := join(t, alice, "r1", "alice")

	bob := dial(t, srv)
	send(t, bob, map[string]any{"type": "join-room", "room": "r1", "participant": "bob"})
	m := recv(t, bob)
	require.Equal(t, "joined", m["type"])
	bobID := m["self"].(string)
	peers := m["peers"].([]any)
	require.Len(t, peers, 1)
	require.Equal(t, aliceID, peers[0].(map[string]any)["conn"])

	m = recv(t, alice)
	require.Equal(t, "peer-joined", m["type"])
	require.Equal(t, bobID, m["conn"])
	require.Equal(t, "bob", m["participant"])

	// Chat reaches bob with server-assigned sender identity.
	send(t, alice, map[string]any{"type": "send-message", "text": "hi"})
	m = recv(t, bob)
	require.Equal(t, "receive-message", m["type"])
	require.Equal(t, aliceID, m["from"])
	require.Equal(t, "alice", m["participant"])
	require.Equal(t, "hi", m["text"])

	// No self echo: alice's next frame is her own pong, not the chat.
	send(t, alice, map[string]any{"type": "ping"})
	m = recv(t, alice)
	require.Equal(t, "pong", m["type"])

	// Targeted handshake with a forged sender identity gets re-tagged.
	send(t, bob, map[string]any{
		"type": "offer", "target": aliceID,
		"from": "forged", "participant": "mallory", "sdp": "v=0",
	})
	m = recv(t, alice)
	require.Equal(t, "offer", m["type"])
	require.Equal(t, bobID, m["from"])
	require.Equal(t, "bob", m["participant"])
	require.Equal(t, "v=0", m["sdp"])

	// Bob leaves; alice hears it exactly once.
	send(t, bob, map[string]any{"type": "leave-room"})
	m = recv(t, alice)
	require.Equal(t, "peer-left", m["type"])
	require.Equal(t, bobID, m["conn"])

	// Offer to the stale id drops silently: alice's ping comes back
	// before anything else and no error frame appears.
	send(t, alice, map[string]any{"type": "offer", "target": bobID, "sdp": "v=0"})
	send(t, alice, map[string]any{"type": "ping"})
	m = recv(t, alice)
	require.Equal(t, "pong", m["type"])
}

func TestSignalDisconnectBroadcastsPeerLeft(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	join(t, alice, "r1", "alice")

	bob := dial(t, srv)
	send(t, bob, map[string]any{"type": "join-room", "room": "r1", "participant": "bob"})
	m := recv(t, bob)
	bobID := m["self"].(string)
	m = recv(t, alice)
	require.Equal(t, "peer-joined", m["type"])

	// Abrupt close, no leave frame: the disconnect path must announce it.
	require.NoError(t, bob.Close())

	m = recv(t, alice)
	require.Equal(t, "peer-left", m["type"])
	require.Equal(t, bobID, m["conn"])
	require.Equal(t, "bob", m["participant"])
}

func TestSignalRoomScopedEventBeforeJoin(t *testing.T) {
	srv := newTestServer(t)

	c := dial(t, srv)
	send(t, c, map[string]any{"type": "send-message", "text": "early"})
	m := recv(t, c)
	require.Equal(t, "error", m["type"])
	require.Equal(t, "not_in_room", m["error"])
}

func TestSignalMalformedJoinRejected(t *testing.T) {
	srv := newTestServer(t)

	c := dial(t, srv)
	send(t, c, map[string]any{"type": "join-room"})
	m := recv(t, c)
	require.Equal(t, "error", m["type"])
	require.Equal(t, "bad_payload", m["error"])
}

func TestSignalRejoinAfterLeaveOnSameSocket(t *testing.T) {
	srv := newTestServer(t)

	c := dial(t, srv)
	join(t, c, "r1", "alice")
	send(t, c, map[string]any{"type": "leave-room"})

	// Same transport, different room.
	self := join(t, c, "r2", "alice")
	require.NotEmpty(t, self)
}
