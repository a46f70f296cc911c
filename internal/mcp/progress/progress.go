// Package progress routes notifications/progress envelopes to the sink
// registered for a call's progress token (spec.md §4.H).
// file: internal/mcp/progress/progress.go
package progress

import "sync"

// Sink receives progress updates for a single outstanding call. Message and
// Total are optional; Total is zero when the server didn't report one.
type Sink func(progress, total float64, message string)

// Token identifies an outstanding call's progress stream. It's whatever
// scalar the caller put in params._meta.progressToken — a string or a
// number — so it's stored and compared as the decoded any value.
type Token any

// Registry maps progress tokens to sinks for one endpoint. Registration and
// delivery happen from different goroutines (the caller installing a sink
// before sending its request, the endpoint's reader delivering notifications
// as they arrive), so access is mutex-guarded.
type Registry struct {
	mu    sync.Mutex
	sinks map[any]Sink
}

// NewRegistry returns an empty progress registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[any]Sink)}
}

// Register installs sink for token, to be called until Unregister or the
// owning call completes. Overwrites any existing sink for the same token.
func (r *Registry) Register(token Token, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[token] = sink
}

// Unregister removes the sink for token. Safe to call even if none was
// registered.
func (r *Registry) Unregister(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, token)
}

// Deliver routes a progress update to the sink for token, if any is
// registered. Unrouted updates (no sink, or a closed/completed call) are
// dropped, per spec.md §4.D.
func (r *Registry) Deliver(token Token, progress, total float64, message string) {
	r.mu.Lock()
	sink, ok := r.sinks[token]
	r.mu.Unlock()
	if !ok {
		return
	}
	sink(progress, total, message)
}
