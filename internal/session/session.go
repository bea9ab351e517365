// Package session keeps per-conversation state between turns.
package session

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultID is used when the caller does not supply a session id.
const DefaultID = "default"

// State is the conversation state carried between turns.
// PendingQuery is set if and only if AwaitingContact is true.
type State struct {
	AwaitingContact bool
	PendingQuery    string
}

// AwaitContact returns the state for a session that has been asked for
// contact details to escalate query.
func AwaitContact(query string) State {
	return State{AwaitingContact: true, PendingQuery: query}
}

// Store maps session ids to state.
type Store interface {
	// Get returns the session state, creating an empty one on first access.
	Get(id string) State

	// Set replaces the session state.
	Set(id string, state State)

	// Clear removes the session state.
	Clear(id string)

	// Lock serializes state transitions for one session. It gives up when
	// ctx is done. The returned func releases the lock.
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// MemoryStore is a process-lifetime Store. Nothing is persisted.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
	locks  sync.Map // id -> *semaphore.Weighted
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Get implements Store.
func (s *MemoryStore) Get(id string) State {
	id = normalize(id)

	s.mu.RLock()
	state, ok := s.states[id]
	s.mu.RUnlock()
	if ok {
		return state
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok = s.states[id]; !ok {
		s.states[id] = State{}
	}
	return state
}

// Set implements Store.
func (s *MemoryStore) Set(id string, state State) {
	if !state.AwaitingContact {
		state.PendingQuery = ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[normalize(id)] = state
}

// Clear implements Store.
func (s *MemoryStore) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, normalize(id))
}

// Lock implements Store. Per-id locks are kept for the life of the process,
// matching the lifetime of session state.
func (s *MemoryStore) Lock(ctx context.Context, id string) (func(), error) {
	v, _ := s.locks.LoadOrStore(normalize(id), semaphore.NewWeighted(1))
	sem := v.(*semaphore.Weighted)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// Len returns the number of sessions with state.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

func normalize(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return DefaultID
	}
	return id
}

var _ Store = (*MemoryStore)(nil)
