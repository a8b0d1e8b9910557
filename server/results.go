package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/backtalker/vm"
)

// pendingResult is a server-side reference to a run that suspended before
// finishing. machine is the top-level machine of the run, nil if it could
// not be found.
type pendingResult struct {
	id        string
	result    *vm.FuncResult
	machine   *vm.Machine
	sessionID string
	lastUsed  time.Time
}

// ResultStore maps opaque string IDs to the results of suspended runs so
// clients can poll them. The stored results must only be inspected on the
// worker goroutine.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*pendingResult
	nextID  atomic.Uint64
}

// NewResultStore creates a new result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]*pendingResult),
	}
}

// Create registers a pending result and returns its ID.
func (s *ResultStore) Create(r *vm.FuncResult, m *vm.Machine, sessionID string) string {
	id := fmt.Sprintf("r-%d", s.nextID.Add(1))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.results[id] = &pendingResult{
		id:        id,
		result:    r,
		machine:   m,
		sessionID: sessionID,
		lastUsed:  now,
	}
	return id
}

// lookup retrieves a result by ID and marks it used.
func (s *ResultStore) lookup(id string) (*pendingResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.results[id]
	if !ok {
		return nil, false
	}
	p.lastUsed = time.Now()
	return p, true
}

// Len returns the number of stored results.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Release removes a result.
func (s *ResultStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, id)
}

// ReleaseSession releases all results owned by a session.
func (s *ResultStore) ReleaseSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.results {
		if p.sessionID == sessionID {
			delete(s.results, id)
		}
	}
}

// Sweep removes results that haven't been polled within the TTL.
func (s *ResultStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, p := range s.results {
		if p.lastUsed.Before(cutoff) {
			delete(s.results, id)
			removed++
		}
	}
	if removed > 0 {
		serverLog().Debugf("swept %d results", removed)
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *ResultStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
