package server

import "github.com/chazu/backtalker/vm"

// Request and response messages for the eval and session services. They
// travel as CBOR or JSON, whichever codec the client picks.

// EvalRequest runs Source in a session. An empty SessionID uses the
// server's default session.
type EvalRequest struct {
	SessionID string `cbor:"1,keyasint,omitempty" json:"sessionId,omitempty"`
	Source    string `cbor:"2,keyasint" json:"source"`
	Chunk     string `cbor:"3,keyasint,omitempty" json:"chunk,omitempty"`
}

// EvalResponse reports a finished run, or the id of a still pending one.
type EvalResponse struct {
	Success  bool        `cbor:"1,keyasint" json:"success"`
	Done     bool        `cbor:"2,keyasint" json:"done"`
	Result   string      `cbor:"3,keyasint,omitempty" json:"result,omitempty"`
	ResultID string      `cbor:"4,keyasint,omitempty" json:"resultId,omitempty"`
	Output   string      `cbor:"5,keyasint,omitempty" json:"output,omitempty"`
	Error    *Diagnostic `cbor:"6,keyasint,omitempty" json:"error,omitempty"`
}

// ResultRequest polls a pending result.
type ResultRequest struct {
	ResultID string `cbor:"1,keyasint" json:"resultId"`
	// Release drops the result once it is reported as done.
	Release bool `cbor:"2,keyasint,omitempty" json:"release,omitempty"`
}

// ResultResponse is the current state of a result. Parked lists the
// session's suspended machines while the result is pending.
type ResultResponse struct {
	Done    bool        `cbor:"1,keyasint" json:"done"`
	Success bool        `cbor:"2,keyasint" json:"success"`
	Result  string      `cbor:"3,keyasint,omitempty" json:"result,omitempty"`
	Output  string      `cbor:"4,keyasint,omitempty" json:"output,omitempty"`
	Error   *Diagnostic `cbor:"5,keyasint,omitempty" json:"error,omitempty"`
	Parked  []*vm.State `cbor:"6,keyasint,omitempty" json:"parked,omitempty"`
}

// CheckSyntaxRequest validates Source without running it.
type CheckSyntaxRequest struct {
	Source string `cbor:"1,keyasint" json:"source"`
	Chunk  string `cbor:"2,keyasint,omitempty" json:"chunk,omitempty"`
}

type CheckSyntaxResponse struct {
	Valid       bool          `cbor:"1,keyasint" json:"valid"`
	Diagnostics []*Diagnostic `cbor:"2,keyasint,omitempty" json:"diagnostics,omitempty"`
}

// Diagnostic describes an error at a source line. Line is 1-based and 0
// when the error carries no location.
type Diagnostic struct {
	Kind    string `cbor:"1,keyasint" json:"kind"`
	Line    int    `cbor:"2,keyasint,omitempty" json:"line,omitempty"`
	Message string `cbor:"3,keyasint" json:"message"`
}

// SignaturesRequest lists the functions visible in a session. With a
// Prefix only signatures completing it are returned.
type SignaturesRequest struct {
	SessionID string `cbor:"1,keyasint,omitempty" json:"sessionId,omitempty"`
	Prefix    string `cbor:"2,keyasint,omitempty" json:"prefix,omitempty"`
}

type SignaturesResponse struct {
	Functions []*FuncInfo `cbor:"1,keyasint,omitempty" json:"functions,omitempty"`
}

// FuncInfo describes one registered signature.
type FuncInfo struct {
	Signature string   `cbor:"1,keyasint" json:"signature"`
	Name      string   `cbor:"2,keyasint,omitempty" json:"name,omitempty"`
	Library   string   `cbor:"3,keyasint,omitempty" json:"library,omitempty"`
	Help      string   `cbor:"4,keyasint,omitempty" json:"help,omitempty"`
	Vivify    []string `cbor:"5,keyasint,omitempty" json:"vivify,omitempty"`
	Hanging   bool     `cbor:"6,keyasint,omitempty" json:"hanging,omitempty"`
}

type CreateSessionRequest struct {
	Name string `cbor:"1,keyasint,omitempty" json:"name,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string `cbor:"1,keyasint" json:"sessionId"`
}

type DestroySessionRequest struct {
	SessionID string `cbor:"1,keyasint" json:"sessionId"`
}

type DestroySessionResponse struct{}
