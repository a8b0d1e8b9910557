package server

import (
	"fmt"
	"strings"

	"github.com/chazu/backtalker/compiler"
	"github.com/chazu/backtalker/vm"
)

// callSite is a function call found in a document.
type callSite struct {
	Name    string
	Line    int
	Hanging bool
	Args    []*compiler.FuncArg
}

// callCollector walks an AST and records every call, including calls
// nested in arguments and hanging bodies.
type callCollector struct {
	calls []callSite
}

func collectCalls(ce *compiler.CompoundExpression) []callSite {
	c := &callCollector{}
	_ = c.VisitCompound(ce)
	return c.calls
}

func (c *callCollector) VisitLiteral(*compiler.Literal) error   { return nil }
func (c *callCollector) VisitBareWord(*compiler.BareWord) error { return nil }
func (c *callCollector) VisitRef(*compiler.Ref) error           { return nil }

func (c *callCollector) VisitUnaryMinus(n *compiler.UnaryMinus) error {
	return compiler.Accept(n.Operand, c)
}

func (c *callCollector) VisitBinOp(n *compiler.BinOpNode) error {
	if err := compiler.Accept(n.Left, c); err != nil {
		return err
	}
	for _, step := range n.Ops {
		if err := compiler.Accept(step.Right, c); err != nil {
			return err
		}
	}
	return nil
}

func (c *callCollector) VisitCompound(n *compiler.CompoundExpression) error {
	for _, stmt := range n.Statements {
		if err := compiler.Accept(stmt, c); err != nil {
			return err
		}
	}
	return nil
}

func (c *callCollector) VisitFuncArg(n *compiler.FuncArg) error {
	return compiler.Accept(n.Expr, c)
}

func (c *callCollector) VisitFuncCall(n *compiler.FuncCall) error {
	c.calls = append(c.calls, callSite{Name: n.Name, Line: n.Code.Line, Args: n.Args})
	for _, arg := range n.Args {
		if err := c.VisitFuncArg(arg); err != nil {
			return err
		}
	}
	return nil
}

func (c *callCollector) VisitHangingCall(n *compiler.HangingCall) error {
	c.calls = append(c.calls, callSite{Name: n.Name, Line: n.Code.Line, Hanging: true, Args: n.Args})
	for _, arg := range n.Args {
		if err := c.VisitFuncArg(arg); err != nil {
			return err
		}
	}
	if n.Body == nil {
		return nil
	}
	return c.VisitCompound(n.Body)
}

// defineCall is the signature of the library's function-definition call.
const defineCall = "define $ :"

// analysis is what static checking learns about one document.
type analysis struct {
	scope    *vm.Scope
	calls    []callSite
	defined  map[string]int // signature -> line of its define
	problems []*Diagnostic
	warnings []*Diagnostic
}

// analyze parses source and resolves its calls against a child of base.
// Functions defined with a literal pattern anywhere in the document are
// visible everywhere in it.
func analyze(base *vm.Scope, source, chunk string) *analysis {
	a := &analysis{scope: base.Child(), defined: make(map[string]int)}
	if err := compiler.Check(source, chunk); err != nil {
		a.problems = append(a.problems, diagnose(err))
		return a
	}
	ce, err := compiler.Parse(source, chunk)
	if err != nil {
		a.problems = append(a.problems, diagnose(err))
		return a
	}
	a.calls = collectCalls(ce)

	for _, call := range a.calls {
		if call.Name != defineCall || len(call.Args) == 0 {
			continue
		}
		lit, ok := call.Args[0].Expr.(*compiler.Literal)
		if !ok {
			continue
		}
		pattern, ok := lit.Value.(string)
		if !ok {
			continue
		}
		defs, err := vm.CompilePattern(pattern)
		if err != nil {
			d := diagnose(err)
			d.Line = call.Line
			a.problems = append(a.problems, d)
			continue
		}
		meta := vm.FuncMeta{Name: pattern, Library: "user", Help: "User function " + pattern + "."}
		_ = a.scope.AddFunc([]string{pattern}, nil, meta)
		for _, def := range defs {
			a.defined[def.Signature()] = call.Line
		}
		if a.scope.FindFunc("yield") == nil {
			_ = a.scope.AddFunc([]string{"yield"}, nil, vm.FuncMeta{
				Name:    "yield",
				Library: "user",
				Help:    "yield: run the block passed to the current user function.",
			})
		}
	}

	for _, call := range a.calls {
		if a.scope.FindFunc(call.Name) == nil {
			a.warnings = append(a.warnings, &Diagnostic{
				Kind:    KindLookup,
				Line:    call.Line,
				Message: fmt.Sprintf("no function matches %q", call.Name),
			})
		}
	}
	return a
}

// callsOnLine returns the calls starting at a 1-based line.
func (a *analysis) callsOnLine(line int) []callSite {
	var out []callSite
	for _, c := range a.calls {
		if c.Line == line {
			out = append(out, c)
		}
	}
	return out
}

// callFor picks the call on line whose signature contains word.
func (a *analysis) callFor(line int, word string) (callSite, bool) {
	for _, c := range a.callsOnLine(line) {
		for _, tok := range strings.Fields(c.Name) {
			if tok == word {
				return c, true
			}
		}
	}
	return callSite{}, false
}
