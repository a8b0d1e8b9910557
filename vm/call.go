package vm

import (
	"fmt"

	"github.com/chazu/backtalker/compiler"
)

// Call is what an implementation receives: the bound arguments, the
// named parameters, the calling scope and, for hanging calls, the
// uncompiled body.
type Call struct {
	Handle *FuncHandle
	Args   []Value
	Params map[string]Value
	Scope  *Scope
	Body   *compiler.CompoundExpression
	Code   compiler.Code

	ev *Evaluator
}

// Signature returns the signature the call dispatched to.
func (c *Call) Signature() string {
	return c.Handle.Signature
}

// Arg returns positional argument i, or nil when out of range.
func (c *Call) Arg(i int) Value {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Param returns the named parameter, or nil.
func (c *Call) Param(name string) Value {
	return c.Params[name]
}

// Ref returns positional argument i as a variable handle.
func (c *Call) Ref(i int) (*Ref, error) {
	r, ok := c.Arg(i).(*Ref)
	if !ok {
		return nil, fmt.Errorf("argument %d of %q is not a variable", i+1, c.Signature())
	}
	return r, nil
}

// Number returns positional argument i as a number.
func (c *Call) Number(i int) (float64, error) {
	n, ok := c.Arg(i).(float64)
	if !ok {
		return 0, fmt.Errorf("argument %d of %q: expected number, got %s", i+1, c.Signature(), TypeName(c.Arg(i)))
	}
	return n, nil
}

// Evaluator returns the evaluator running the call.
func (c *Call) Evaluator() *Evaluator {
	return c.ev
}

// EvalBody evaluates the hanging body in a fresh child of the calling
// scope. Each call gets a new scope.
func (c *Call) EvalBody() (*FuncResult, error) {
	return c.EvalBodyIn(c.Scope.Child())
}

// EvalBodyIn evaluates the hanging body as a sub-evaluation over scope.
func (c *Call) EvalBodyIn(scope *Scope) (*FuncResult, error) {
	if c.Body == nil {
		return nil, fmt.Errorf("%q has no body", c.Signature())
	}
	return c.ev.Sub(scope).Eval(c.Body)
}
