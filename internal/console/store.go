package console

import "sync"

// Store owns the current State and broadcasts a ping to subscribers after
// every dispatched action. Listeners receive an empty struct and should
// re-read State.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[chan struct{}]struct{}
}

// NewStore creates a store holding the initial state.
func NewStore() *Store {
	return &Store{
		state:     Initial(),
		listeners: make(map[chan struct{}]struct{}),
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Dispatch reduces a into the current state and notifies listeners.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.broadcast()
	return snapshot
}

// Subscribe returns a channel that receives a ping on every state change.
// The caller must call Unsubscribe when done.
func (s *Store) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (s *Store) Unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	_, ok := s.listeners[ch]
	delete(s.listeners, ch)
	s.mu.Unlock()
	if ok {
		close(ch)
	}
}

// broadcast is non-blocking: a listener with a pending ping is skipped.
func (s *Store) broadcast() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
