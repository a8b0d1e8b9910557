package vm

import (
	"fmt"

	"github.com/chazu/backtalker/compiler"
)

// DefinitionError reports a malformed function pattern.
type DefinitionError struct {
	Pattern string
	Msg     string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("bad definition %q: %s", e.Pattern, e.Msg)
}

// LookupKind says what a LookupError failed to find.
type LookupKind int

const (
	LookupFunction LookupKind = iota
	LookupVariable
)

// LookupError reports a call site with no matching signature, or a read
// of an undefined variable.
type LookupError struct {
	Code compiler.Code
	Kind LookupKind
	Name string
}

func (e *LookupError) Error() string {
	if e.Kind == LookupVariable {
		return fmt.Sprintf("%s: undefined variable $%s", e.Code, e.Name)
	}
	return fmt.Sprintf("%s: no function matches %q", e.Code, e.Name)
}

// BindingError reports an argument that violates its slot's
// vivification requirement.
type BindingError struct {
	Code      compiler.Code
	Signature string
	Index     int // 0-based argument slot
	Msg       string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%s: %s (argument %d of %q)", e.Code, e.Msg, e.Index+1, e.Signature)
}

// RuntimeError wraps a failure raised while executing an instruction,
// such as an operand type mismatch or an error returned by a function
// implementation.
type RuntimeError struct {
	Code compiler.Code
	Op   string
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
