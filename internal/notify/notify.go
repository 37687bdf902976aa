// Package notify delivers server events to connected chat clients.
//
// The registry tracks live connections by ID. Delivery to a stale or
// unknown connection is logged and swallowed: a client that dropped mid-turn
// must never fail the turn that produced the event.
package notify

import (
	"context"
	"sync"

	"github.com/askgov/askgov/internal/log"
)

// Conn is one client connection capable of receiving events.
// *websocket.Conn wrappers satisfy this in production; tests use recorders.
type Conn interface {
	// Send writes one event to the client.
	Send(ctx context.Context, event any) error
}

// Registry tracks active client connections.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	active map[string]Conn
	logger log.Logger
}

// NewRegistry creates a connection registry.
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		active: make(map[string]Conn),
		logger: logger,
	}
}

// Register adds a connection under the given ID, replacing any previous
// connection with the same ID.
func (r *Registry) Register(connID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[connID] = conn
	r.logger.Debug("connection registered", "conn_id", connID)
}

// Unregister removes a connection. Removing an unknown ID is a no-op.
// Only the currently registered connection is removed, so a reconnect that
// replaced the entry is not torn down by the old connection's cleanup.
func (r *Registry) Unregister(connID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.active[connID]; ok && current == conn {
		delete(r.active, connID)
		r.logger.Debug("connection unregistered", "conn_id", connID)
	}
}

// Len returns the number of active connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// Send delivers an event to the given connection. Unknown IDs and write
// failures are logged and swallowed; delivery is best-effort.
func (r *Registry) Send(ctx context.Context, connID string, event any) {
	r.mu.RLock()
	conn, ok := r.active[connID]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("dropping event for unknown connection", "conn_id", connID)
		return
	}
	if err := conn.Send(ctx, event); err != nil {
		r.logger.Warn("failed to deliver event", "conn_id", connID, "error", err)
	}
}
