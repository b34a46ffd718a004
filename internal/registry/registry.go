// Package registry tracks connected dashboard consumers.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kazuninishiki/SysMonServer/internal/model"
)

// CadenceSetter applies a validated interval process-wide.
type CadenceSetter interface {
	Set(ms int) bool
}

// Record is one connection. CadenceOverrideMs is the last interval the
// consumer requested, or 0.
type Record struct {
	ID                string
	RemoteAddress     string
	ConnectedAt       time.Time
	LastSeenAt        time.Time
	CadenceOverrideMs int
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Record
	cadence CadenceSetter
	logger  *slog.Logger
	now     func() time.Time
}

func New(cadence CadenceSetter, logger *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Record),
		cadence: cadence,
		logger:  logger,
		now:     time.Now,
	}
}

// Register adds a consumer. A duplicate id is ignored.
func (r *Registry) Register(id, remoteAddress string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; ok {
		return
	}
	now := r.now().UTC()
	r.clients[id] = &Record{ID: id, RemoteAddress: remoteAddress, ConnectedAt: now, LastSeenAt: now}
	r.logger.Info("client connected", "client_id", id, "remote_addr", remoteAddress)
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.clients[id]
	if !ok {
		return
	}
	delete(r.clients, id)
	r.logger.Info("client disconnected", "client_id", id, "remote_addr", rec.RemoteAddress)
}

// Touch marks inbound activity.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.clients[id]; ok {
		rec.LastSeenAt = r.now().UTC()
	}
}

// SetCadence validates ms and, when accepted, changes the shared interval
// for every consumer, not only id.
func (r *Registry) SetCadence(id string, ms int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.cadence.Set(ms) {
		r.logger.Debug("interval change ignored", "client_id", id, "interval_ms", ms)
		return false
	}
	if rec, ok := r.clients[id]; ok {
		rec.CadenceOverrideMs = ms
	}
	r.logger.Info("update interval changed", "client_id", id, "interval_ms", ms)
	return true
}

// SnapshotView returns a point-in-time copy safe to use after the lock is
// released.
func (r *Registry) SnapshotView() map[string]model.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.Client, len(r.clients))
	for id, rec := range r.clients {
		out[id] = model.Client{
			RemoteAddress: rec.RemoteAddress,
			ConnectedAt:   rec.ConnectedAt,
			LastSeenAt:    rec.LastSeenAt,
		}
	}
	return out
}

// get returns a copy of the record for id.
func (r *Registry) get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.clients[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
