// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"sync"
)

// Registry is the process-wide map of live calls, keyed by stream SID.
// Only the telephony layer mutates it: insert on start, delete on close.
type Registry struct {
	mu    sync.RWMutex
	calls map[string]*Call
}

func NewRegistry() *Registry {
	return &Registry{calls: make(map[string]*Call)}
}

func (r *Registry) Insert(streamSID string, call *Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[streamSID] = call
}

func (r *Registry) Delete(streamSID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.calls, streamSID)
}

func (r *Registry) Get(streamSID string) (*Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	call, ok := r.calls[streamSID]
	return call, ok
}

// Len reports the number of live calls, used by the readiness endpoint.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calls)
}

// EndAll terminates every live call, used on graceful shutdown.
func (r *Registry) EndAll(reason string) {
	r.mu.Lock()
	calls := make([]*Call, 0, len(r.calls))
	for _, call := range r.calls {
		calls = append(calls, call)
	}
	r.calls = make(map[string]*Call)
	r.mu.Unlock()

	for _, call := range calls {
		call.End(reason)
	}
}
