package service

import (
	"sync"

	"appliance_status/internal/detector"
)

// registry holds the live detector instances, keyed by appliance id. Detectors
// serialize their own evaluation; the registry only guards the map itself.
type registry struct {
	mu        sync.RWMutex
	detectors map[string]*detector.Detector
}

func newRegistry() *registry {
	return &registry{detectors: make(map[string]*detector.Detector)}
}

func (r *registry) put(id string, d *detector.Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[id] = d
}

func (r *registry) get(id string) (*detector.Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[id]
	return d, ok
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.detectors, id)
}

// all returns a copy of the map so callers can iterate without holding the lock.
func (r *registry) all() map[string]*detector.Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*detector.Detector, len(r.detectors))
	for id, d := range r.detectors {
		out[id] = d
	}
	return out
}
