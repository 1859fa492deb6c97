// Package policy holds the process-wide, hot-swappable choice of put
// and get policy (spec §5: "Policy registry: process-wide,
// protected by a mutex; readers snapshot it at the start of each
// request rather than holding the lock for the request's duration").
package policy

import (
	"sync"

	"github.com/skystorehq/geogw/internal/policy/placement"
	"github.com/skystorehq/geogw/internal/policy/transfer"
)

// Snapshot is the immutable view of the registry a handler captures
// once at the top of a request.
type Snapshot struct {
	PutPolicy placement.Policy
	GetPolicy transfer.Policy
}

// Registry is the mutable process-wide holder. Only update_policy
// writes to it; every other handler calls Snapshot.
type Registry struct {
	mu  sync.RWMutex
	cur Snapshot
}

// NewRegistry builds a registry already holding an initial put/get
// pair, so handlers never observe a nil policy.
func NewRegistry(put placement.Policy, get transfer.Policy) *Registry {
	return &Registry{cur: Snapshot{PutPolicy: put, GetPolicy: get}}
}

// Snapshot returns the currently active put/get policy pair.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur
}

// SetPutPolicy swaps the active placement policy (update_policy,
// spec §6).
func (r *Registry) SetPutPolicy(p placement.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur.PutPolicy = p
}

// SetGetPolicy swaps the active transfer policy (update_policy,
// spec §6).
func (r *Registry) SetGetPolicy(p transfer.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur.GetPolicy = p
}
