package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
)

// SessionService implements the backtalker.v1.SessionService procedures.
type SessionService struct {
	worker   *Worker
	sessions *SessionStore
}

// NewSessionService creates a SessionService.
func NewSessionService(worker *Worker, sessions *SessionStore) *SessionService {
	return &SessionService{
		worker:   worker,
		sessions: sessions,
	}
}

// Create creates a new session with a fresh standard library.
func (s *SessionService) Create(
	ctx context.Context,
	req *connect.Request[CreateSessionRequest],
) (*connect.Response[CreateSessionResponse], error) {
	session, err := s.sessions.Create(req.Msg.Name)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&CreateSessionResponse{
		SessionID: session.ID,
	}), nil
}

// Destroy destroys a session and releases its results.
func (s *SessionService) Destroy(
	ctx context.Context,
	req *connect.Request[DestroySessionRequest],
) (*connect.Response[DestroySessionResponse], error) {
	if req.Msg.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}

	_, ok := s.sessions.Get(req.Msg.SessionID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.Msg.SessionID))
	}

	// Destroy on the worker so no request for the session is mid-run.
	_, err := s.worker.Do(func() (any, error) {
		s.sessions.Destroy(req.Msg.SessionID)
		return nil, nil
	})
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&DestroySessionResponse{}), nil
}
