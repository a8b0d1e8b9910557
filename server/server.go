package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
)

// Procedure paths. Requests are unary, encoded as CBOR or JSON.
const (
	EvalServiceName    = "backtalker.v1.EvalService"
	SessionServiceName = "backtalker.v1.SessionService"

	EvalProcedure           = "/" + EvalServiceName + "/Eval"
	ResultProcedure         = "/" + EvalServiceName + "/Result"
	CheckSyntaxProcedure    = "/" + EvalServiceName + "/CheckSyntax"
	SignaturesProcedure     = "/" + EvalServiceName + "/Signatures"
	CreateSessionProcedure  = "/" + SessionServiceName + "/Create"
	DestroySessionProcedure = "/" + SessionServiceName + "/Destroy"
)

// Server serves BackTalker sessions over Connect.
type Server struct {
	worker   *Worker
	results  *ResultStore
	sessions *SessionStore
	mux      *http.ServeMux
	http     *http.Server

	stopSweeper func()
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	sweepInterval time.Duration
	resultTTL     time.Duration
	preload       []Script
}

// WithResultTTL sets how long an unpolled result is kept and how often
// the store is swept.
func WithResultTTL(ttl, interval time.Duration) Option {
	return func(c *serverConfig) {
		c.resultTTL = ttl
		c.sweepInterval = interval
	}
}

// WithPreload evaluates scripts in every new session.
func WithPreload(scripts ...Script) Option {
	return func(c *serverConfig) {
		c.preload = append(c.preload, scripts...)
	}
}

// New creates a Server with its own worker.
func New(opts ...Option) *Server {
	cfg := &serverConfig{
		sweepInterval: 5 * time.Minute,
		resultTTL:     30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewWorker()
	results := NewResultStore()
	sessions := NewSessionStore(worker, results)
	sessions.SetPreload(cfg.preload)

	s := &Server{
		worker:   worker,
		results:  results,
		sessions: sessions,
		mux:      http.NewServeMux(),
	}

	evalSvc := NewEvalService(worker, results, sessions)
	sessionSvc := NewSessionService(worker, sessions)

	register(s.mux, EvalProcedure, evalSvc.Eval)
	register(s.mux, ResultProcedure, evalSvc.Result)
	register(s.mux, CheckSyntaxProcedure, evalSvc.CheckSyntax)
	register(s.mux, SignaturesProcedure, evalSvc.Signatures)
	register(s.mux, CreateSessionProcedure, sessionSvc.Create)
	register(s.mux, DestroySessionProcedure, sessionSvc.Destroy)

	s.stopSweeper = results.StartSweeper(cfg.sweepInterval, cfg.resultTTL)

	return s
}

func register[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
) {
	mux.Handle(procedure, connect.NewUnaryHandler(
		procedure,
		fn,
		connect.WithCodec(cborCodec{}),
		connect.WithCodec(jsonCodec{}),
	))
}

// Handler returns the HTTP handler serving every procedure.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr ("host:port" or ":port") until Stop.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.mux}
	serverLog().Noticef("BackTalker server listening on %s", addr)
	serverLog().Noticef("  Connect (CBOR/JSON): http://%s%s", addr, EvalProcedure)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the server.
func (s *Server) Stop() {
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			serverLog().Warningf("shutdown: %s", err)
		}
	}
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.worker.Stop()
}
