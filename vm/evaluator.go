package vm

import (
	"sort"

	"github.com/chazu/backtalker/compiler"
)

// ---------------------------------------------------------------------------
// Evaluator: parse, compile and run against a scope
// ---------------------------------------------------------------------------

// runtime is shared by an evaluator and every sub-evaluator derived from
// it.
type runtime struct {
	nextID    uint64
	depth     int
	parked    map[uint64]*Machine
	running   *Machine
	onExpress func(v Value, code compiler.Code)
}

// Evaluator runs programs against a scope.
type Evaluator struct {
	scope *Scope
	chunk string
	rt    *runtime
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithChunk sets the chunk name used for source passed to EvalString.
func WithChunk(name string) Option {
	return func(ev *Evaluator) { ev.chunk = name }
}

// WithExpressHook registers fn to observe every expressed statement
// value, in every nested evaluation.
func WithExpressHook(fn func(v Value, code compiler.Code)) Option {
	return func(ev *Evaluator) { ev.rt.onExpress = fn }
}

// NewEvaluator creates an evaluator over scope. A nil scope gets a fresh
// root scope.
func NewEvaluator(scope *Scope, opts ...Option) *Evaluator {
	if scope == nil {
		scope = NewScope(nil)
	}
	ev := &Evaluator{
		scope: scope,
		rt:    &runtime{parked: make(map[uint64]*Machine)},
	}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// Scope returns the evaluator's scope.
func (ev *Evaluator) Scope() *Scope {
	return ev.scope
}

// Sub returns an evaluator over scope that shares this evaluator's
// runtime state. Hanging-call bodies run in sub-evaluators.
func (ev *Evaluator) Sub(scope *Scope) *Evaluator {
	return &Evaluator{scope: scope, chunk: ev.chunk, rt: ev.rt}
}

// Eval compiles node and runs it. The returned result is the run's sink:
// it may still be pending when Eval returns. Compilation happens once
// per CompoundExpression no matter how often it is evaluated.
func (ev *Evaluator) Eval(node compiler.Node) (*FuncResult, error) {
	var (
		prog *compiler.Program
		err  error
	)
	if ce, ok := node.(*compiler.CompoundExpression); ok {
		prog, err = ce.Program()
	} else {
		prog, err = compiler.Compile(node, node.Loc().Chunk)
	}
	if err != nil {
		return nil, err
	}
	return ev.Run(prog)
}

// Run executes an already compiled program.
func (ev *Evaluator) Run(prog *compiler.Program) (*FuncResult, error) {
	m := newMachine(ev, prog)
	if err := m.Run(); err != nil {
		return m.sink, err
	}
	return m.sink, nil
}

// EvalString parses and evaluates source under the evaluator's chunk
// name.
func (ev *Evaluator) EvalString(source string) (*FuncResult, error) {
	return ev.EvalChunk(source, ev.chunk)
}

// EvalChunk parses and evaluates source under the given chunk name.
func (ev *Evaluator) EvalChunk(source, chunk string) (*FuncResult, error) {
	ast, err := compiler.Parse(source, chunk)
	if err != nil {
		return nil, err
	}
	return ev.Eval(ast)
}

// Parked returns the machines currently suspended on a pending result,
// oldest first.
func (ev *Evaluator) Parked() []*Machine {
	out := make([]*Machine, 0, len(ev.rt.parked))
	for _, m := range ev.rt.parked {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
