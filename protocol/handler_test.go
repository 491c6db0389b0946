package protocol

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharad1666/GD-AI-App/hub"
)

type mockConn struct {
	id      string
	sent    [][]byte
	sendErr error
	mu      sync.Mutex
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, data)
	return nil
}

func (m *mockConn) Close() error { return nil }

func (m *mockConn) getSent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// lastSent decodes the most recent frame sent to the connection.
func (m *mockConn) lastSent(t *testing.T) map[string]any {
	t.Helper()
	sent := m.getSent()
	require.NotEmpty(t, sent)
	var out map[string]any
	require.NoError(t, json.Unmarshal(sent[len(sent)-1], &out))
	return out
}

type mockSink struct {
	mu      sync.Mutex
	entries []sinkEntry
}

type sinkEntry struct {
	roomID, userName, text string
	timestampMs            int64
}

func (m *mockSink) Append(roomID, userName, text string, timestampMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, sinkEntry{roomID, userName, text, timestampMs})
	return nil
}

func (m *mockSink) getEntries() []sinkEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries
}

type mockBus struct {
	mu        sync.Mutex
	published []busCall
}

type busCall struct {
	roomID, exclude string
	payload         []byte
}

func (m *mockBus) Publish(_ context.Context, roomID, exclude string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, busCall{roomID, exclude, payload})
	return nil
}

func newTestHandler() (*Handler, *mockSink) {
	sink := &mockSink{}
	return NewHandler(hub.NewRegistry(), hub.NewDirectory(), sink), sink
}

func connect(h *Handler, id string) *mockConn {
	conn := &mockConn{id: id}
	h.Connect(conn)
	return conn
}

func join(h *Handler, conn *mockConn, roomID, name string) {
	h.Message(conn, []byte(`{"type":"join","roomId":"`+roomID+`","name":"`+name+`"}`))
}

func TestHandler_JoinScenario(t *testing.T) {
	h, _ := newTestHandler()

	alice := connect(h, "a")
	join(h, alice, "r1", "Alice")

	// first member gets an empty existing-users list
	require.Len(t, alice.getSent(), 1)
	assert.JSONEq(t, `{"type":"existing-users","users":[]}`, string(alice.getSent()[0]))

	bob := connect(h, "b")
	join(h, bob, "r1", "Bob")

	// joiner sees prior members with their names, never itself
	require.Len(t, bob.getSent(), 1)
	assert.JSONEq(t, `{"type":"existing-users","users":[{"id":"a","name":"Alice"}]}`, string(bob.getSent()[0]))

	// prior member sees the new-user event
	require.Len(t, alice.getSent(), 2)
	assert.JSONEq(t, `{"type":"new-user","id":"b","name":"Bob"}`, string(alice.getSent()[1]))
}

func TestHandler_OfferRelay(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")
	carol := connect(h, "c")
	join(h, alice, "r1", "Alice")
	join(h, bob, "r1", "Bob")
	join(h, carol, "r1", "Carol")

	h.Message(alice, []byte(`{"type":"offer","to":"b","offer":"sdp-1"}`))

	// delivered only to the addressed peer, payload preserved verbatim
	last := bob.lastSent(t)
	assert.Equal(t, "offer", last["type"])
	assert.Equal(t, "a", last["from"])
	assert.Equal(t, "sdp-1", last["offer"])

	for _, sent := range carol.getSent() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sent, &m))
		assert.NotEqual(t, "offer", m["type"])
	}
}

func TestHandler_RelayUnknownTarget(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	join(h, alice, "r1", "Alice")

	h.Message(alice, []byte(`{"type":"answer","to":"ghost","answer":{"sdp":"x"}}`))

	// silently dropped, no error frame back to the sender
	require.Len(t, alice.getSent(), 1) // only the existing-users reply
}

func TestHandler_RelayWithoutJoin(t *testing.T) {
	// relay targets are resolved by connection id, not room membership
	h, _ := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")

	h.Message(alice, []byte(`{"type":"ice","to":"b","candidate":{"c":1}}`))

	last := bob.lastSent(t)
	assert.Equal(t, "ice", last["type"])
	assert.Equal(t, "a", last["from"])
}

func TestHandler_Speaking(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")
	join(h, alice, "r1", "Alice")
	join(h, bob, "r1", "Bob")

	aliceBefore := len(alice.getSent())
	h.Message(alice, []byte(`{"type":"speaking","roomId":"r1","isSpeaking":true}`))

	last := bob.lastSent(t)
	assert.Equal(t, "speaking", last["type"])
	assert.Equal(t, "a", last["userId"])
	assert.Equal(t, true, last["isSpeaking"])

	// never echoed back to the originator
	assert.Len(t, alice.getSent(), aliceBefore)
}

func TestHandler_SpeakingPolicy(t *testing.T) {
	tests := []struct {
		name        string
		strict      bool
		wantDeliver bool
	}{
		{name: "permissive trusts the stated room", strict: false, wantDeliver: true},
		{name: "strict drops non-member rooms", strict: true, wantDeliver: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler()
			h.RequireMembership(tt.strict)

			bob := connect(h, "b")
			join(h, bob, "r1", "Bob")

			// outsider never joined r1
			outsider := connect(h, "x")
			h.Message(outsider, []byte(`{"type":"speaking","roomId":"r1","isSpeaking":true}`))

			if tt.wantDeliver {
				last := bob.lastSent(t)
				assert.Equal(t, "speaking", last["type"])
				assert.Equal(t, "x", last["userId"])
			} else {
				for _, sent := range bob.getSent() {
					var m map[string]any
					require.NoError(t, json.Unmarshal(sent, &m))
					assert.NotEqual(t, "speaking", m["type"])
				}
			}
		})
	}
}

func TestHandler_Transcript(t *testing.T) {
	h, sink := newTestHandler()
	alice := connect(h, "a")
	join(h, alice, "r1", "Alice")

	h.Message(alice, []byte(`{"type":"transcript","roomId":"r1","userName":"Alice","text":"hello all"}`))

	entries := sink.getEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].roomID)
	assert.Equal(t, "Alice", entries[0].userName)
	assert.Equal(t, "hello all", entries[0].text)
	assert.Positive(t, entries[0].timestampMs)

	// no broadcast for transcripts
	assert.Len(t, alice.getSent(), 1)
}

func TestHandler_Leave(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")
	join(h, alice, "r1", "Alice")
	join(h, bob, "r1", "Bob")

	h.Message(bob, []byte(`{"type":"leave"}`))

	last := alice.lastSent(t)
	assert.Equal(t, "user-left", last["type"])
	assert.Equal(t, "b", last["id"])

	// second leave has no observable effect
	before := len(alice.getSent())
	h.Message(bob, []byte(`{"type":"leave"}`))
	assert.Len(t, alice.getSent(), before)
}

func TestHandler_Disconnect(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")
	join(h, alice, "r1", "Alice")
	join(h, bob, "r1", "Bob")

	h.Disconnect(bob)

	last := alice.lastSent(t)
	assert.Equal(t, "user-left", last["type"])
	assert.Equal(t, "b", last["id"])

	// gone from the room, the directory, and the registry
	assert.Equal(t, []string{"a"}, h.directory.MembersOf("r1"))
	_, ok := h.directory.RoomOf("b")
	assert.False(t, ok)
	_, ok = h.registry.Lookup("b")
	assert.False(t, ok)

	// disconnecting again is a no-op
	before := len(alice.getSent())
	h.Disconnect(bob)
	assert.Len(t, alice.getSent(), before)
}

func TestHandler_DisconnectWithoutJoin(t *testing.T) {
	h, _ := newTestHandler()
	conn := connect(h, "a")

	h.Disconnect(conn)

	_, ok := h.registry.Lookup("a")
	assert.False(t, ok)
}

func TestHandler_DisconnectEmptiesRoom(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	join(h, alice, "r1", "Alice")

	h.Disconnect(alice)

	assert.Empty(t, h.directory.MembersOf("r1"))
	rooms, _ := h.directory.Stats()
	assert.Equal(t, 0, rooms)
}

func TestHandler_RejoinMovesRooms(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")
	join(h, alice, "r1", "Alice")
	join(h, bob, "r1", "Bob")

	join(h, alice, "r2", "Alice")

	// old room saw a user-left for the mover
	last := bob.lastSent(t)
	assert.Equal(t, "user-left", last["type"])
	assert.Equal(t, "a", last["id"])

	assert.Equal(t, []string{"b"}, h.directory.MembersOf("r1"))
	assert.Equal(t, []string{"a"}, h.directory.MembersOf("r2"))
}

func TestHandler_RejoinSameRoom(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")
	join(h, alice, "r1", "Alice")
	join(h, bob, "r1", "Bob")

	bobBefore := len(bob.getSent())
	join(h, alice, "r1", "Alice")

	// peers see a user-left before the repeated new-user, never a bare
	// duplicate
	sent := bob.getSent()
	require.Len(t, sent, bobBefore+2)
	assert.JSONEq(t, `{"type":"user-left","id":"a"}`, string(sent[bobBefore]))
	assert.JSONEq(t, `{"type":"new-user","id":"a","name":"Alice"}`, string(sent[bobBefore+1]))

	// the rejoiner still never sees itself in existing-users
	assert.JSONEq(t, `{"type":"existing-users","users":[{"id":"b","name":"Bob"}]}`,
		string(alice.getSent()[len(alice.getSent())-1]))

	assert.Equal(t, []string{"b", "a"}, h.directory.MembersOf("r1"))
}

func TestHandler_MalformedDropped(t *testing.T) {
	h, sink := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")
	join(h, alice, "r1", "Alice")
	join(h, bob, "r1", "Bob")

	aliceBefore := len(alice.getSent())
	bobBefore := len(bob.getSent())

	h.Message(alice, []byte(`not json`))
	h.Message(alice, []byte(`{"type":"join","roomId":"r1"}`))
	h.Message(alice, []byte(`{"type":"transcript","roomId":"r1","userName":"Alice"}`))
	h.Message(alice, []byte(`{"type":"mystery"}`))

	assert.Len(t, alice.getSent(), aliceBefore)
	assert.Len(t, bob.getSent(), bobBefore)
	assert.Empty(t, sink.getEntries())
	assert.Equal(t, []string{"a", "b"}, h.directory.MembersOf("r1"))
}

func TestHandler_BroadcastSurvivesDeadRecipient(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	dead := connect(h, "d")
	dead.sendErr = assert.AnError
	carol := connect(h, "c")
	join(h, alice, "r1", "Alice")
	join(h, dead, "r1", "Dead")
	join(h, carol, "r1", "Carol")

	h.Message(alice, []byte(`{"type":"speaking","roomId":"r1","isSpeaking":true}`))

	// the failing recipient did not stop delivery to the rest
	last := carol.lastSent(t)
	assert.Equal(t, "speaking", last["type"])
}

func TestHandler_BusPublish(t *testing.T) {
	h, _ := newTestHandler()
	b := &mockBus{}
	h.UseBus(b)

	alice := connect(h, "a")
	join(h, alice, "r1", "Alice")

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.published, 1)
	assert.Equal(t, "r1", b.published[0].roomID)
	assert.Equal(t, "a", b.published[0].exclude)
	assert.JSONEq(t, `{"type":"new-user","id":"a","name":"Alice"}`, string(b.published[0].payload))
}

func TestHandler_DeliverLocal(t *testing.T) {
	h, _ := newTestHandler()
	alice := connect(h, "a")
	bob := connect(h, "b")
	join(h, alice, "r1", "Alice")
	join(h, bob, "r1", "Bob")

	payload := []byte(`{"type":"speaking","userId":"z","isSpeaking":true}`)
	h.DeliverLocal("r1", "a", payload)

	assert.JSONEq(t, string(payload), string(bob.getSent()[len(bob.getSent())-1]))

	// excluded id gets nothing new
	for _, sent := range alice.getSent() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sent, &m))
		assert.NotEqual(t, "z", m["userId"])
	}
}
