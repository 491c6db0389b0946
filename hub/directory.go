package hub

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/sharad1666/GD-AI-App/domain"
	"github.com/sharad1666/GD-AI-App/metrics"
)

type membership struct {
	roomID string
	name   string
}

// Directory maps rooms to their members in join order and each connection
// to its current room and display name. A single coarse lock serializes all
// mutations; join/leave rates are low relative to relay traffic, so
// correctness wins over per-room parallelism.
type Directory struct {
	mu      sync.Mutex
	rooms   map[string][]string
	members map[string]membership
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:   make(map[string][]string),
		members: make(map[string]membership),
	}
}

// Join adds the connection to the room, creating the room if needed, and
// returns the member list as it existed immediately before this join. A
// connection joining while still a member elsewhere is moved: last join
// wins.
func (d *Directory) Join(roomID, connID, name string) []domain.Member {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeLocked(connID)

	ids := d.rooms[roomID]
	prior := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		prior = append(prior, domain.Member{ID: id, Name: d.members[id].name})
	}

	if len(ids) == 0 {
		slog.Info("room created", "room", roomID)
	}
	d.rooms[roomID] = append(ids, connID)
	d.members[connID] = membership{roomID: roomID, name: name}
	metrics.ActiveRooms.Set(float64(len(d.rooms)))

	return prior
}

// Leave removes the connection's membership and returns the room it was in.
// No-op if the connection never joined or already left.
func (d *Directory) Leave(connID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.members[connID]
	if !ok {
		return "", false
	}
	d.removeLocked(connID)
	return m.roomID, true
}

// removeLocked deletes the membership and room entry for connID, dropping
// the room when it empties. Caller holds d.mu.
func (d *Directory) removeLocked(connID string) {
	m, ok := d.members[connID]
	if !ok {
		return
	}
	delete(d.members, connID)

	ids, ok := d.rooms[m.roomID]
	if !ok {
		// Membership pointed at a missing room. Should not happen; the
		// membership is already gone, so the connection is simply
		// not-joined now.
		slog.Warn("membership referenced missing room", "clientId", connID, "room", m.roomID)
		return
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return id == connID })
	if len(ids) == 0 {
		delete(d.rooms, m.roomID)
		slog.Info("room removed", "room", m.roomID)
	} else {
		d.rooms[m.roomID] = ids
	}
	metrics.ActiveRooms.Set(float64(len(d.rooms)))
}

// MembersOf returns a copy of the room's member ids in join order. Empty
// for an unknown room.
func (d *Directory) MembersOf(roomID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.rooms[roomID])
}

func (d *Directory) RoomOf(connID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[connID]
	return m.roomID, ok
}

func (d *Directory) NameOf(connID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[connID]
	return m.name, ok
}

func (d *Directory) Stats() (rooms, members int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms), len(d.members)
}
