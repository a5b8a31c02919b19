package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/and161185/topupbd/internal/monitoring"
)

// Registry maps device ids to their State, creating states on first use.
type Registry struct {
	svc Services

	mu     sync.Mutex
	states map[string]*entry
}

type entry struct {
	once  sync.Once
	state atomic.Pointer[State]
}

func NewRegistry(svc Services) *Registry {
	return &Registry{svc: svc, states: make(map[string]*entry)}
}

// Get returns the device's state. Concurrent first requests for one device
// build a single state; other devices are not blocked meanwhile.
func (r *Registry) Get(ctx context.Context, deviceID string) *State {
	r.mu.Lock()
	e, ok := r.states[deviceID]
	if !ok {
		e = &entry{}
		r.states[deviceID] = e
	}
	n := len(r.states)
	r.mu.Unlock()

	if !ok {
		monitoring.SetActiveStates(n)
	}

	e.once.Do(func() {
		e.state.Store(newState(context.WithoutCancel(ctx), deviceID, r.svc))
	})

	s := e.state.Load()
	s.touch()
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Evict drops states idle for longer than ttl and returns how many went.
func (r *Registry) Evict(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	var dropped []*State
	for id, e := range r.states {
		s := e.state.Load()
		if s == nil {
			continue
		}
		if s.idleSince().Before(cutoff) {
			dropped = append(dropped, s)
			delete(r.states, id)
		}
	}
	n := len(r.states)
	r.mu.Unlock()

	for _, s := range dropped {
		s.close()
	}
	monitoring.SetActiveStates(n)
	return len(dropped)
}
