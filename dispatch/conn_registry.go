package dispatch

import (
	"sync"

	"github.com/kilnhq/kiln/wsconn"
)

// ConnRegistry is the process-wide set of live WebSocket connections
// (spec §4.10). Add/Remove write a mutex-guarded map; GetAll, Filter and
// the broadcasts iterate over a snapshot slice copied under that mutex,
// so a broadcast in progress never observes a connection being
// concurrently added or removed mid-iteration.
type ConnRegistry struct {
	mu    sync.Mutex
	conns map[string]*wsconn.Facade
}

// NewConnRegistry builds an empty ConnRegistry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: map[string]*wsconn.Facade{}}
}

// Add registers a connection under its connection ID.
func (r *ConnRegistry) Add(f *wsconn.Facade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[f.Context.ConnectionID] = f
}

// Remove deregisters a connection.
func (r *ConnRegistry) Remove(f *wsconn.Facade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, f.Context.ConnectionID)
}

// Get returns the connection for id, if it is still live.
func (r *ConnRegistry) Get(id string) (*wsconn.Facade, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.conns[id]
	return f, ok
}

// GetAll returns a point-in-time snapshot of every live connection.
func (r *ConnRegistry) GetAll() []*wsconn.Facade {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*wsconn.Facade, 0, len(r.conns))
	for _, f := range r.conns {
		out = append(out, f)
	}
	return out
}

// Filter returns the snapshot of live connections matching pred.
func (r *ConnRegistry) Filter(pred func(*wsconn.Facade) bool) []*wsconn.Facade {
	all := r.GetAll()
	out := make([]*wsconn.Facade, 0, len(all))
	for _, f := range all {
		if pred(f) {
			out = append(out, f)
		}
	}
	return out
}

// Broadcast sends msg to every connection in the snapshot for which pred
// returns true (or every connection, if pred is nil). A send error on
// one connection does not abort the rest; errors are collected and
// returned keyed by connection ID.
func (r *ConnRegistry) Broadcast(msg any, pred func(*wsconn.Facade) bool) map[string]error {
	targets := r.GetAll()
	errs := map[string]error{}
	for _, f := range targets {
		if pred != nil && !pred(f) {
			continue
		}
		if err := f.Send(msg); err != nil {
			errs[f.Context.ConnectionID] = err
		}
	}
	return errs
}

// BroadcastBinary is Broadcast for raw binary payloads.
func (r *ConnRegistry) BroadcastBinary(data []byte, pred func(*wsconn.Facade) bool) map[string]error {
	targets := r.GetAll()
	errs := map[string]error{}
	for _, f := range targets {
		if pred != nil && !pred(f) {
			continue
		}
		if err := f.SendBinary(data); err != nil {
			errs[f.Context.ConnectionID] = err
		}
	}
	return errs
}
