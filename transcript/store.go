package transcript

import (
	"slices"
	"sync"
)

// Entry is one utterance captured during a session.
type Entry struct {
	RoomID    string `json:"roomId"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Store accumulates per-room transcripts. ByRoom returns entries in append
// order (newest-last), empty for an unknown room.
type Store interface {
	Append(roomID, userName, text string, timestampMs int64) error
	ByRoom(roomID string) ([]Entry, error)
	ClearRoom(roomID string) error
	Close() error
}

// MemoryStore keeps transcripts in process memory. Transcripts only ever
// span a single session, so this is the default store.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string][]Entry)}
}

func (s *MemoryStore) Append(roomID, userName, text string, timestampMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = append(s.rooms[roomID], Entry{
		RoomID:    roomID,
		UserName:  userName,
		Text:      text,
		Timestamp: timestampMs,
	})
	return nil
}

func (s *MemoryStore) ByRoom(roomID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rooms[roomID]), nil
}

func (s *MemoryStore) ClearRoom(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
