package protocol

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sharad1666/GD-AI-App/domain"
	"github.com/sharad1666/GD-AI-App/metrics"
)

// Bus fans room broadcasts out to other relay instances. Optional.
type Bus interface {
	Publish(ctx context.Context, roomID, exclude string, payload []byte) error
}

// Handler is the routing engine: it interprets decoded messages against the
// registry and directory and performs the prescribed delivery. It is safe
// for concurrent use from many connection goroutines.
type Handler struct {
	registry   domain.Registry
	directory  domain.Directory
	transcript domain.TranscriptSink

	bus    Bus
	strict bool
}

func NewHandler(registry domain.Registry, directory domain.Directory, transcript domain.TranscriptSink) *Handler {
	return &Handler{
		registry:   registry,
		directory:  directory,
		transcript: transcript,
	}
}

// UseBus attaches a cross-instance broadcast bus. Call before serving.
func (h *Handler) UseBus(b Bus) { h.bus = b }

// RequireMembership makes speaking/transcript messages require that the
// sender is actually joined to the stated room. Off by default.
func (h *Handler) RequireMembership(on bool) { h.strict = on }

// Connect registers a new live connection. The connection receives no room
// traffic until it joins.
func (h *Handler) Connect(conn domain.Connection) {
	h.registry.Register(conn)
}

// Message routes one inbound frame. Malformed frames are dropped without
// side effects; the connection stays open.
func (h *Handler) Message(conn domain.Connection, data []byte) {
	msg, err := Decode(data)
	if err != nil {
		slog.Warn("invalid message", "clientId", conn.ID(), "error", err)
		return
	}
	switch msg.Type {
	case KindJoin:
		h.handleJoin(conn, msg)
	case KindOffer, KindAnswer, KindICE:
		h.handleRelay(conn, msg)
	case KindSpeaking:
		h.handleSpeaking(conn, msg)
	case KindTranscript:
		h.handleTranscript(conn, msg)
	case KindLeave:
		h.handleLeave(conn)
	default:
		// Unknown kinds are ignored. Not counted either: the label set
		// must stay bounded.
		slog.Debug("ignoring unknown message type", "clientId", conn.ID(), "type", msg.Type)
		return
	}
	metrics.MessagesTotal.WithLabelValues(msg.Type).Inc()
}

// Disconnect is the implicit leave: membership cleanup, user-left
// broadcast, then unregistration. Safe for connections that never joined.
func (h *Handler) Disconnect(conn domain.Connection) {
	h.handleLeave(conn)
	h.registry.Unregister(conn.ID())
}

func (h *Handler) handleJoin(conn domain.Connection, msg Message) {
	// Joining while already a member anywhere counts as leaving first:
	// last join wins, and peers always see a user-left before the next
	// new-user for the same id. This covers re-joining the same room too.
	if _, ok := h.directory.RoomOf(conn.ID()); ok {
		h.handleLeave(conn)
	}

	prior := h.directory.Join(msg.RoomID, conn.ID(), msg.Name)
	h.sendTo(conn, EncodeExistingUsers(prior))
	h.broadcast(msg.RoomID, conn.ID(), EncodeNewUser(conn.ID(), msg.Name))

	slog.Info("client joined room", "clientId", conn.ID(), "room", msg.RoomID, "name", msg.Name, "peers", len(prior))
}

// handleRelay forwards offer/answer/ice to the addressed peer with the
// sender stamped as from. An unknown or dead target drops the message
// silently; the sender sees no error.
func (h *Handler) handleRelay(conn domain.Connection, msg Message) {
	target, ok := h.registry.Lookup(msg.To)
	if !ok {
		metrics.RelayDrops.Inc()
		slog.Debug("relay target not found", "clientId", conn.ID(), "to", msg.To, "type", msg.Type)
		return
	}
	h.sendTo(target, EncodeRelay(msg.Type, conn.ID(), msg.Payload()))
}

func (h *Handler) handleSpeaking(conn domain.Connection, msg Message) {
	if !h.allowRoom(conn, msg.RoomID, msg.Type) {
		return
	}
	h.broadcast(msg.RoomID, conn.ID(), EncodeSpeaking(conn.ID(), *msg.IsSpeaking))
}

func (h *Handler) handleTranscript(conn domain.Connection, msg Message) {
	if !h.allowRoom(conn, msg.RoomID, msg.Type) {
		return
	}
	if err := h.transcript.Append(msg.RoomID, msg.UserName, msg.Text, time.Now().UnixMilli()); err != nil {
		slog.Error("transcript append failed", "room", msg.RoomID, "error", err)
	}
}

func (h *Handler) handleLeave(conn domain.Connection) {
	roomID, ok := h.directory.Leave(conn.ID())
	if !ok {
		return
	}
	h.broadcast(roomID, conn.ID(), EncodeUserLeft(conn.ID()))
	slog.Info("client left room", "clientId", conn.ID(), "room", roomID)
}

// allowRoom applies the membership policy for room-addressed messages. In
// permissive mode (default) the stated roomId is trusted as-is.
func (h *Handler) allowRoom(conn domain.Connection, roomID, kind string) bool {
	if !h.strict {
		return true
	}
	current, ok := h.directory.RoomOf(conn.ID())
	if !ok || current != roomID {
		slog.Warn("dropping message for non-member room", "clientId", conn.ID(), "room", roomID, "type", kind)
		return false
	}
	return true
}

// broadcast delivers payload to every live member of the room except
// exclude, locally and (when a bus is attached) on peer instances.
func (h *Handler) broadcast(roomID, exclude string, payload []byte) {
	h.DeliverLocal(roomID, exclude, payload)
	if h.bus != nil {
		if err := h.bus.Publish(context.Background(), roomID, exclude, payload); err != nil {
			slog.Warn("bus publish failed", "room", roomID, "error", err)
		}
	}
}

// DeliverLocal sends payload to the room's local members, skipping exclude.
// The member list is snapshotted by the directory, so no lock is held while
// sending; one slow or dead recipient never fails the rest.
func (h *Handler) DeliverLocal(roomID, exclude string, payload []byte) {
	for _, id := range h.directory.MembersOf(roomID) {
		if id == exclude {
			continue
		}
		member, ok := h.registry.Lookup(id)
		if !ok {
			continue
		}
		h.sendTo(member, payload)
	}
}

func (h *Handler) sendTo(conn domain.Connection, payload []byte) {
	if err := conn.Send(payload); err != nil {
		metrics.TransmitFailures.Inc()
		if !errors.Is(err, domain.ErrConnectionClosed) {
			slog.Warn("send failed", "clientId", conn.ID(), "error", err)
		}
	}
}
