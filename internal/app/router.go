package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
	"github.com/avoronov/huddle/internal/protocol"
)

// Router interprets inbound signaling events and decides fan-out:
// broadcast to the sender's room or targeted delivery to one connection.
// Recipient lists are computed under the room's lock; actual sends happen
// after release so a slow peer never stalls joins and leaves.
type Router struct {
	Registry *Registry
	Rooms    *Directory
	Policy   Policy
}

func NewRouter(reg *Registry, rooms *Directory, policy Policy) *Router {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Router{Registry: reg, Rooms: rooms, Policy: policy}
}

// OnJoin admits the connection into the room, replies with the current
// peer snapshot and announces the newcomer to everyone already there.
func (rt *Router) OnJoin(connID core.ConnID, roomID domain.RoomID, participant domain.ParticipantID) {
	sess, ok := rt.Registry.Session(connID)
	if !ok {
		return
	}
	if rt.Registry.State(connID) != core.StateConnecting {
		rt.reportError(sess, protocol.ErrCodeAlreadyJoined)
		return
	}

	rt.Registry.SetParticipant(connID, participant)
	others, err := rt.Rooms.Join(roomID, connID, sess)
	if err != nil {
		log.Warn().Str("module", "app.router").Str("conn", string(connID)).
			Str("room", string(roomID)).Err(err).Msg("join rejected")
		rt.reportError(sess, protocol.ErrCodeAlreadyJoined)
		return
	}
	rt.Registry.MarkJoined(connID)

	peers := make([]core.PeerInfo, 0, len(others))
	for _, m := range others {
		peers = append(peers, core.PeerInfo{Conn: m.Conn, Participant: m.Session.Participant()})
	}
	rt.send(core.MemberSnap{Conn: connID, Session: sess}, protocol.Joined{
		Type:  protocol.KindJoined,
		Room:  roomID,
		Self:  connID,
		Peers: peers,
	})

	rt.fanOut(others, protocol.PeerEvent{
		Type:        protocol.KindPeerJoined,
		Conn:        connID,
		Participant: participant,
	})
}

// OnLeaveOrDisconnect runs for an explicit leave and for transport close
// alike. The NotInRoom outcome is the idempotent path: leave followed by
// disconnect broadcasts peer-left exactly once.
func (rt *Router) OnLeaveOrDisconnect(connID core.ConnID) {
	participant := rt.participantOf(connID)

	roomID, remaining, err := rt.Rooms.Leave(connID)
	if err != nil {
		if errors.Is(err, core.ErrNotInRoom) {
			log.Debug().Str("module", "app.router").Str("conn", string(connID)).Msg("leave: not in a room")
			return
		}
		log.Error().Str("module", "app.router").Str("conn", string(connID)).Err(err).Msg("leave")
		return
	}
	rt.Registry.MarkConnecting(connID)

	log.Info().Str("module", "app.router").Str("conn", string(connID)).
		Str("room", string(roomID)).Msg("departure")
	rt.fanOut(remaining, protocol.PeerEvent{
		Type:        protocol.KindPeerLeft,
		Conn:        connID,
		Participant: participant,
	})
}

// OnHandshake relays an offer, answer or ice-candidate to exactly one
// connection. The sender identity in the frame is whatever the registry
// knows, never what the sender claimed. An unreachable target is a silent
// drop: the sender's handshake times out and its own WebRTC layer retries.
func (rt *Router) OnHandshake(senderID core.ConnID, hs protocol.Handshake) {
	sender, ok := rt.Registry.Session(senderID)
	if !ok {
		return
	}
	if hs.Target == "" {
		rt.reportError(sender, protocol.ErrCodeBadPayload)
		return
	}
	if rt.Registry.State(senderID) != core.StateJoined {
		rt.reportError(sender, protocol.ErrCodeNotInRoom)
		return
	}

	targetID := hs.Target
	target, ok := rt.Registry.Session(targetID)
	if !ok || !rt.sameRoom(senderID, targetID) {
		log.Debug().Str("module", "app.router").Str("kind", hs.Type).
			Str("from", string(senderID)).Str("target", string(targetID)).
			Msg("handshake target unreachable, dropped")
		return
	}

	hs.From = senderID
	hs.Participant = sender.Participant()
	hs.Target = ""
	rt.send(core.MemberSnap{Conn: targetID, Session: target}, hs)
}

// OnChat broadcasts a text message to the sender's room, sender excluded.
func (rt *Router) OnChat(senderID core.ConnID, text string) {
	sender, ok := rt.Registry.Session(senderID)
	if !ok {
		return
	}
	roomID, ok := rt.Rooms.RoomOf(senderID)
	if !ok {
		rt.reportError(sender, protocol.ErrCodeNotInRoom)
		return
	}

	msg := protocol.ReceiveMessage{
		Type:        protocol.KindReceiveMessage,
		From:        senderID,
		Participant: sender.Participant(),
		Text:        text,
	}
	members := rt.Rooms.MembersOf(roomID)
	recipients := members[:0]
	for _, m := range members {
		if m.Conn != senderID {
			recipients = append(recipients, m)
		}
	}
	rt.fanOut(recipients, msg)
}

func (rt *Router) fanOut(members []core.MemberSnap, v any) {
	frame, err := protocol.Marshal(v)
	if err != nil {
		log.Error().Str("module", "app.router").Err(err).Msg("encode broadcast")
		return
	}
	for _, m := range members {
		rt.deliver(m, frame)
	}
}

func (rt *Router) send(m core.MemberSnap, v any) {
	frame, err := protocol.Marshal(v)
	if err != nil {
		log.Error().Str("module", "app.router").Err(err).Msg("encode frame")
		return
	}
	rt.deliver(m, frame)
}

func (rt *Router) deliver(m core.MemberSnap, frame core.Frame) {
	err := m.Session.Signal().TrySend(frame)
	if err == nil {
		return
	}
	log.Warn().Str("module", "app.router").Str("conn", string(m.Conn)).Err(err).Msg("delivery dropped")
	if !errors.Is(err, core.ErrBackpressure) {
		return
	}
	switch rt.Policy.OnBackpressure(m) {
	case KickMember:
		rt.Registry.Cancel(m.Conn)
	case DropFrame, NoAction:
	}
}

func (rt *Router) reportError(sess core.MemberSession, code string) {
	frame, err := protocol.Marshal(protocol.ErrorEvent{Type: protocol.KindError, Error: code})
	if err != nil {
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().Str("module", "app.router").Err(err).Msg("error report dropped")
	}
}

// sameRoom confines targeted relays to the sender's room: a handshake
// must never reach a peer the sender does not share a meeting with.
func (rt *Router) sameRoom(a, b core.ConnID) bool {
	roomA, okA := rt.Rooms.RoomOf(a)
	roomB, okB := rt.Rooms.RoomOf(b)
	return okA && okB && roomA == roomB
}

func (rt *Router) participantOf(connID core.ConnID) domain.ParticipantID {
	if sess, ok := rt.Registry.Session(connID); ok {
		return sess.Participant()
	}
	return ""
}
