package server

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/backtalker/lib"
	"github.com/chazu/backtalker/vm"
)

// DefaultSessionID names the session used by requests that give none.
const DefaultSessionID = "default"

// Session is an isolated workspace: a root scope holding the standard
// library, the evaluator that runs against it and the print output not
// yet returned to the client. Everything but the ID and Name is owned by
// the worker goroutine.
type Session struct {
	ID      string
	Name    string
	Created time.Time

	scope *vm.Scope
	ev    *vm.Evaluator
	out   bytes.Buffer
}

// drain returns and clears the buffered print output.
func (s *Session) drain() string {
	out := s.out.String()
	s.out.Reset()
	return out
}

// Script is source evaluated into every new session before it is used.
type Script struct {
	Name   string
	Source string
}

// SessionStore manages sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	worker   *Worker
	results  *ResultStore
	preload  []Script
}

// NewSessionStore creates a session store whose sessions schedule timers
// on worker.
func NewSessionStore(worker *Worker, results *ResultStore) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		worker:   worker,
		results:  results,
	}
}

// SetPreload sets the scripts run in each session created from now on.
func (s *SessionStore) SetPreload(scripts []Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preload = scripts
}

// Create creates a new session with an optional name. It runs on the
// worker, so it must not be called from there.
func (s *SessionStore) Create(name string) (*Session, error) {
	v, err := s.worker.Do(func() (any, error) {
		return s.create(uuid.NewString(), name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (s *SessionStore) create(id, name string) (*Session, error) {
	session := &Session{
		ID:      id,
		Name:    name,
		Created: time.Now(),
		scope:   vm.NewScope(nil),
	}
	opts := lib.Options{
		Out:       &session.out,
		Scheduler: s.worker,
		OnError: func(err error) {
			serverLog().Warningf("session %s: %s", id, err)
		},
	}
	if err := lib.Install(session.scope, opts); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	session.ev = vm.NewEvaluator(session.scope, vm.WithChunk("<"+id+">"))

	s.mu.RLock()
	preload := s.preload
	s.mu.RUnlock()
	for _, script := range preload {
		if _, err := session.ev.EvalChunk(script.Source, script.Name); err != nil {
			return nil, fmt.Errorf("session %s: preload: %w", id, err)
		}
	}
	if out := session.drain(); out != "" {
		serverLog().Debugf("session %s preload output: %s", id, out)
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	serverLog().Debugf("created session %s", id)
	return session, nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// GetOrDefault resolves id, creating the default session on first use.
// Must be called on the worker goroutine.
func (s *SessionStore) GetOrDefault(id string) (*Session, error) {
	if id == "" {
		id = DefaultSessionID
	}
	if session, ok := s.Get(id); ok {
		return session, nil
	}
	if id != DefaultSessionID {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return s.create(DefaultSessionID, "default")
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Destroy removes a session and releases all its results.
func (s *SessionStore) Destroy(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.results.ReleaseSession(id)
}
