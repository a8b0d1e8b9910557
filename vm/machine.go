package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/backtalker/compiler"
)

// ---------------------------------------------------------------------------
// Machine: cooperative stack machine
// ---------------------------------------------------------------------------

// MaxDepth bounds how deeply evaluations may nest synchronously, for
// example through a recursive user-defined function.
const MaxDepth = 4096

// ErrTooDeep is wrapped by the RuntimeError raised when MaxDepth is hit.
var ErrTooDeep = errors.New("evaluation nested too deeply")

// Machine executes one program against one scope. It runs until the
// program ends or a call returns a pending FuncResult; in the latter case
// it parks and resumes from a continuation on that result.
type Machine struct {
	id    uint64
	ev    *Evaluator
	prog  *compiler.Program
	scope *Scope
	ip    int
	stack []Value
	sink  *FuncResult
	last  Value

	// root is the top-level machine of the run this machine belongs to.
	root *Machine

	suspended bool
	pending   *FuncResult
	awaiting  compiler.Instruction
	finished  bool
	err       error
}

func newMachine(ev *Evaluator, prog *compiler.Program) *Machine {
	ev.rt.nextID++
	m := &Machine{
		id:    ev.rt.nextID,
		ev:    ev,
		prog:  prog,
		scope: ev.scope,
		sink:  NewFuncResult(),
	}
	m.root = m
	if cur := ev.rt.running; cur != nil {
		m.root = cur.root
	}
	return m
}

// ID identifies the machine within its evaluator tree.
func (m *Machine) ID() uint64 { return m.id }

// Result returns the sink the machine fulfils when it finishes.
func (m *Machine) Result() *FuncResult { return m.sink }

// Suspended reports whether the machine is parked on a pending result.
func (m *Machine) Suspended() bool { return m.suspended }

// Finished reports whether the machine ran to completion.
func (m *Machine) Finished() bool { return m.finished }

// Err returns the error that stopped the machine, if any.
func (m *Machine) Err() error { return m.err }

// Run executes instructions until the program ends, the machine parks,
// or an instruction fails.
func (m *Machine) Run() error {
	rt := m.ev.rt
	rt.depth++
	prev := rt.running
	rt.running = m
	defer func() {
		rt.depth--
		rt.running = prev
	}()
	if rt.depth > MaxDepth {
		return m.fail(&RuntimeError{Code: compiler.Code{Chunk: m.prog.Chunk}, Op: "run", Err: ErrTooDeep})
	}

	for !m.finished && !m.suspended {
		if m.ip >= len(m.prog.Code) {
			return m.finish()
		}
		ins := m.prog.Code[m.ip]
		m.ip++
		if err := m.step(ins); err != nil {
			return m.fail(err)
		}
	}
	return nil
}

func (m *Machine) step(ins compiler.Instruction) error {
	switch ins.Op {
	case compiler.OpPush:
		m.push(ins.Value)

	case compiler.OpGet:
		v, ok := m.scope.Get(ins.Name)
		if !ok {
			return &LookupError{Code: ins.Code, Kind: LookupVariable, Name: ins.Name}
		}
		if r, isRef := v.(*Ref); isRef {
			cur := r.current()
			if !cur.Defined {
				return &LookupError{Code: ins.Code, Kind: LookupVariable, Name: ins.Name}
			}
			v = cur.Value
		}
		m.push(v)

	case compiler.OpGetVivifiable:
		h := m.scope.Handle(ins.Name)
		if inner, isRef := h.Value.(*Ref); isRef {
			h = inner.current()
		}
		m.push(h)

	case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv,
		compiler.OpAnd, compiler.OpOr, compiler.OpNot:
		b, err := m.pop(ins)
		if err != nil {
			return err
		}
		a, err := m.pop(ins)
		if err != nil {
			return err
		}
		v, err := binary(ins.Op, a, b)
		if err != nil {
			return &RuntimeError{Code: ins.Code, Op: ins.Op.String(), Err: err}
		}
		m.push(v)

	case compiler.OpCallFunc, compiler.OpCallHanging:
		return m.call(ins)

	case compiler.OpExpress:
		v, err := m.pop(ins)
		if err != nil {
			return err
		}
		if len(m.stack) != 0 {
			return &RuntimeError{Code: ins.Code, Op: ins.Op.String(),
				Err: fmt.Errorf("%d values left on the stack", len(m.stack))}
		}
		m.last = v
		if hook := m.ev.rt.onExpress; hook != nil {
			hook(v, ins.Code)
		}

	default:
		return &RuntimeError{Code: ins.Code, Op: ins.Op.String(), Err: errors.New("unknown opcode")}
	}
	return nil
}

func (m *Machine) call(ins compiler.Instruction) error {
	h := m.scope.FindFunc(ins.Name)
	if h == nil {
		return &LookupError{Code: ins.Code, Kind: LookupFunction, Name: ins.Name}
	}
	if len(m.stack) < h.Arity() {
		return &RuntimeError{Code: ins.Code, Op: ins.Op.String(),
			Err: fmt.Errorf("stack underflow calling %q", ins.Name)}
	}

	n := len(m.stack) - h.Arity()
	args := append([]Value(nil), m.stack[n:]...)
	m.stack = m.stack[:n]

	bound, err := bindArgs(h, args, ins.Code)
	if err != nil {
		return err
	}

	c := &Call{
		Handle: h,
		Args:   bound,
		Params: h.Parameterize(bound),
		Scope:  m.scope,
		Body:   ins.Body,
		Code:   ins.Code,
		ev:     m.ev,
	}
	v, err := h.Impl(c)
	if err != nil {
		return wrapCallError(ins, err)
	}
	return m.deliver(v, ins)
}

// deliver pushes a call's value, or parks the machine when the value is
// a pending result.
func (m *Machine) deliver(v Value, ins compiler.Instruction) error {
	r, ok := v.(*FuncResult)
	if !ok {
		m.push(v)
		return nil
	}
	if r.Done() {
		val, _ := r.Get()
		return m.deliver(val, ins)
	}

	m.suspended = true
	m.pending = r
	m.awaiting = ins
	m.ev.rt.parked[m.id] = m
	vmLog().Debugf("%s: machine %d suspended on %q", ins.Code, m.id, ins.Name)
	return r.OnFulfill(m.resume)
}

func (m *Machine) resume(v Value) error {
	if m.finished {
		return nil
	}
	rt := m.ev.rt
	delete(rt.parked, m.id)
	prev := rt.running
	rt.running = m
	defer func() { rt.running = prev }()
	ins := m.awaiting
	m.suspended = false
	m.pending = nil
	vmLog().Debugf("%s: machine %d resumed", ins.Code, m.id)

	if err := m.deliver(v, ins); err != nil {
		return m.fail(err)
	}
	if m.suspended {
		return nil
	}
	return m.Run()
}

func (m *Machine) finish() error {
	if len(m.stack) > 0 {
		// A bare expression compiled without Express leaves its value.
		m.last = m.stack[len(m.stack)-1]
		m.stack = m.stack[:0]
	}
	m.finished = true
	return m.sink.Fulfill(m.last)
}

func (m *Machine) fail(err error) error {
	m.finished = true
	m.err = err
	delete(m.ev.rt.parked, m.id)
	if root := m.root; root != m && root.suspended {
		root.abort(err)
	}
	return err
}

// abort stops a parked top-level machine whose run failed inside a
// resumed sub-evaluation. Nothing will fulfil the result it waits on, so
// it and every machine of its run still parked are dropped.
func (m *Machine) abort(err error) {
	rt := m.ev.rt
	for id, p := range rt.parked {
		if p.root == m {
			p.suspended = false
			p.pending = nil
			p.finished = true
			delete(rt.parked, id)
		}
	}
	m.err = err
	vmLog().Debugf("machine %d aborted: %s", m.id, err)
}

func (m *Machine) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop(ins compiler.Instruction) (Value, error) {
	if len(m.stack) == 0 {
		return nil, &RuntimeError{Code: ins.Code, Op: ins.Op.String(), Err: errors.New("stack underflow")}
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

// wrapCallError attaches the call site to an implementation error.
// Errors that already carry a location pass through unchanged.
func wrapCallError(ins compiler.Instruction, err error) error {
	var (
		re *RuntimeError
		le *LookupError
		be *BindingError
		de *DefinitionError
		pe *compiler.ParseError
		me *compiler.MissingBodyError
		ce *compiler.CompileError
	)
	switch {
	case errors.As(err, &re), errors.As(err, &le), errors.As(err, &be),
		errors.As(err, &de), errors.As(err, &pe), errors.As(err, &me), errors.As(err, &ce):
		return err
	}
	return &RuntimeError{Code: ins.Code, Op: ins.Name, Err: err}
}
