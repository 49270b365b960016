package notifier

import (
	"sync"
)

// Registry tracks connected subscribers. It is owned by the serving layer and
// shared by every transport that accepts clients.
type Registry struct {
	subscribers map[string]Subscriber
	mu          sync.RWMutex
	closed      bool
}

func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[string]Subscriber),
	}
}

// Add registers s. It returns false if the registry is closed or the id is taken.
func (r *Registry) Add(s Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	if _, exists := r.subscribers[s.ID()]; exists {
		return false
	}
	r.subscribers[s.ID()] = s
	return true
}

// Remove unregisters and closes the subscriber with the given id.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.subscribers[id]
	if ok {
		delete(r.subscribers, id)
	}
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

func (r *Registry) Get(id string) (Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subscribers[id]
	return s, ok
}

// Snapshot returns the subscribers registered at the time of the call.
func (r *Registry) Snapshot() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]Subscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		subs = append(subs, s)
	}
	return subs
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Close removes and closes every subscriber, ending their streams. Later Adds fail.
func (r *Registry) Close() {
	r.mu.Lock()
	subs := r.subscribers
	r.subscribers = make(map[string]Subscriber)
	r.closed = true
	r.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
