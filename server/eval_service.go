package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/backtalker/compiler"
	"github.com/chazu/backtalker/vm"
)

// EvalService implements the backtalker.v1.EvalService procedures.
type EvalService struct {
	worker   *Worker
	results  *ResultStore
	sessions *SessionStore
}

// NewEvalService creates an EvalService.
func NewEvalService(worker *Worker, results *ResultStore, sessions *SessionStore) *EvalService {
	return &EvalService{
		worker:   worker,
		results:  results,
		sessions: sessions,
	}
}

// Eval runs source in a session. A run that suspends is returned with a
// result ID to poll through Result.
func (s *EvalService) Eval(
	ctx context.Context,
	req *connect.Request[EvalRequest],
) (*connect.Response[EvalResponse], error) {
	if req.Msg.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.worker.Do(func() (any, error) {
		session, err := s.sessions.GetOrDefault(req.Msg.SessionID)
		if err != nil {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		return s.eval(session, req.Msg), nil
	})
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(result.(*EvalResponse)), nil
}

// Result reports on a run started by Eval.
func (s *EvalService) Result(
	ctx context.Context,
	req *connect.Request[ResultRequest],
) (*connect.Response[ResultResponse], error) {
	id := req.Msg.ResultID
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("result_id is required"))
	}
	p, ok := s.results.lookup(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("result %q not found", id))
	}

	result, err := s.worker.Do(func() (any, error) {
		return s.poll(p), nil
	})
	if err != nil {
		return nil, asConnectError(err)
	}
	resp := result.(*ResultResponse)
	if resp.Done && req.Msg.Release {
		s.results.Release(id)
	}
	return connect.NewResponse(resp), nil
}

// CheckSyntax parses and compiles source without running it.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[CheckSyntaxRequest],
) (*connect.Response[CheckSyntaxResponse], error) {
	if req.Msg.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	if err := compiler.Check(req.Msg.Source, req.Msg.Chunk); err != nil {
		return connect.NewResponse(&CheckSyntaxResponse{
			Diagnostics: []*Diagnostic{diagnose(err)},
		}), nil
	}
	return connect.NewResponse(&CheckSyntaxResponse{Valid: true}), nil
}

// Signatures lists the functions visible in a session.
func (s *EvalService) Signatures(
	ctx context.Context,
	req *connect.Request[SignaturesRequest],
) (*connect.Response[SignaturesResponse], error) {
	result, err := s.worker.Do(func() (any, error) {
		session, err := s.sessions.GetOrDefault(req.Msg.SessionID)
		if err != nil {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		var handles []*vm.FuncHandle
		if req.Msg.Prefix == "" {
			handles = session.scope.Signatures()
		} else {
			handles = session.scope.Complete(req.Msg.Prefix)
		}
		resp := &SignaturesResponse{}
		for _, h := range handles {
			resp.Functions = append(resp.Functions, funcInfo(h))
		}
		return resp, nil
	})
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(result.(*SignaturesResponse)), nil
}

// eval runs a request against session. Must be called on the worker
// goroutine.
func (s *EvalService) eval(session *Session, msg *EvalRequest) *EvalResponse {
	chunk := msg.Chunk
	if chunk == "" {
		chunk = "<" + session.ID + ">"
	}
	r, err := session.ev.EvalChunk(msg.Source, chunk)
	resp := &EvalResponse{Output: session.drain()}
	if err != nil {
		resp.Done = true
		resp.Error = diagnose(err)
		return resp
	}

	resp.Success = true
	if v, err := r.Get(); err == nil {
		resp.Done = true
		resp.Result = vm.Format(v)
		return resp
	}
	resp.ResultID = s.results.Create(r, topMachine(session.ev, r), session.ID)
	return resp
}

// poll reports the state of p. Must be called on the worker goroutine.
func (s *EvalService) poll(p *pendingResult) *ResultResponse {
	resp := &ResultResponse{}
	session, ok := s.sessions.Get(p.sessionID)
	if ok {
		resp.Output = session.drain()
	}

	if v, err := p.result.Get(); err == nil {
		resp.Done = true
		resp.Success = true
		resp.Result = vm.Format(v)
		return resp
	}
	if p.machine != nil && p.machine.Err() != nil {
		resp.Done = true
		resp.Error = diagnose(p.machine.Err())
		return resp
	}
	if !ok {
		resp.Done = true
		resp.Error = &Diagnostic{Kind: KindInternal, Message: "session destroyed"}
		return resp
	}
	for _, m := range session.ev.Parked() {
		resp.Parked = append(resp.Parked, m.State())
	}
	return resp
}

// topMachine finds the parked machine whose sink is r.
func topMachine(ev *vm.Evaluator, r *vm.FuncResult) *vm.Machine {
	for _, m := range ev.Parked() {
		if m.Result() == r {
			return m
		}
	}
	return nil
}

func funcInfo(h *vm.FuncHandle) *FuncInfo {
	info := &FuncInfo{
		Signature: h.Signature,
		Name:      h.Meta.Name,
		Library:   h.Meta.Library,
		Help:      h.Meta.Help,
		Hanging:   h.Def.Hanging(),
	}
	for _, v := range h.Vivify {
		info.Vivify = append(info.Vivify, v.String())
	}
	return info
}

func asConnectError(err error) error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return connect.NewError(connect.CodeInternal, err)
}
