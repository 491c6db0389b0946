package hub

import (
	"log/slog"
	"sync"

	"github.com/sharad1666/GD-AI-App/domain"
	"github.com/sharad1666/GD-AI-App/metrics"
)

// Registry tracks live connections by id. It is the sole owner of
// Connection references; the rest of the system looks them up on demand.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]domain.Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]domain.Connection)}
}

func (r *Registry) Register(conn domain.Connection) {
	r.mu.Lock()
	r.conns[conn.ID()] = conn
	count := len(r.conns)
	r.mu.Unlock()

	metrics.ConnectedClients.Set(float64(count))
	slog.Info("client connected", "clientId", conn.ID(), "clients", count)
}

// Unregister removes a connection. Safe to call twice; the second call is a
// no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, exists := r.conns[id]
	if exists {
		delete(r.conns, id)
	}
	count := len(r.conns)
	r.mu.Unlock()

	if !exists {
		return
	}
	metrics.ConnectedClients.Set(float64(count))
	slog.Info("client disconnected", "clientId", id, "clients", count)
}

func (r *Registry) Lookup(id string) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
