package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// AST: typed syntax tree for BackTalker
// ---------------------------------------------------------------------------

// Code locates a node in its source chunk.
type Code struct {
	Line  int    // 1-based line number
	Chunk string // chunk name, e.g. a file path or "<repl>"
}

func (c Code) String() string {
	if c.Chunk == "" {
		return fmt.Sprintf("line %d", c.Line)
	}
	return fmt.Sprintf("%s:%d", c.Chunk, c.Line)
}

// Node is the interface implemented by all AST nodes. The set of node
// types is closed; Accept is the exhaustive dispatcher over it.
type Node interface {
	Loc() Code
	String() string
	node() // marker method
}

// Literal is a number or string constant.
type Literal struct {
	Code  Code
	Value any // float64 or string
}

func (n *Literal) Loc() Code { return n.Code }
func (n *Literal) node()     {}
func (n *Literal) String() string {
	if s, ok := n.Value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprint(n.Value)
}

// BareWord is a literal word of a call name. After transformation bare
// words only survive inside FuncCall/HangingCall names.
type BareWord struct {
	Code Code
	Word string
}

func (n *BareWord) Loc() Code      { return n.Code }
func (n *BareWord) node()          {}
func (n *BareWord) String() string { return n.Word }

// Ref is a variable reference ($name).
type Ref struct {
	Code Code
	Name string
}

func (n *Ref) Loc() Code      { return n.Code }
func (n *Ref) node()          {}
func (n *Ref) String() string { return "$" + n.Name }

// UnaryMinus negates its operand.
type UnaryMinus struct {
	Code    Code
	Operand Node
}

func (n *UnaryMinus) Loc() Code      { return n.Code }
func (n *UnaryMinus) node()          {}
func (n *UnaryMinus) String() string { return "-" + n.Operand.String() }

// BinOp is a binary operator.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinAnd
	BinOr
	BinNot // a &! b: a and not b
)

var binOpSymbols = map[BinOp]string{
	BinAdd: "+",
	BinSub: "-",
	BinMul: "*",
	BinDiv: "/",
	BinAnd: "&&",
	BinOr:  "||",
	BinNot: "&!",
}

var binOpBySymbol = map[string]BinOp{
	"+":  BinAdd,
	"-":  BinSub,
	"*":  BinMul,
	"/":  BinDiv,
	"&&": BinAnd,
	"||": BinOr,
	"&!": BinNot,
}

func (op BinOp) String() string {
	if s, ok := binOpSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("BinOp(%d)", op)
}

// BinOpStep is one (operator, right operand) pair of a chain.
type BinOpStep struct {
	Op    BinOp
	Right Node
}

// BinOpNode is a left-associative operator chain. Precedence between
// different operators is expressed by nesting, never at runtime.
type BinOpNode struct {
	Code Code
	Left Node
	Ops  []BinOpStep
}

func (n *BinOpNode) Loc() Code { return n.Code }
func (n *BinOpNode) node()     {}
func (n *BinOpNode) String() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(n.Left.String())
	for _, step := range n.Ops {
		fmt.Fprintf(&b, " %s %s", step.Op, step.Right)
	}
	b.WriteString(")")
	return b.String()
}

// CompoundExpression is an ordered list of statements.
type CompoundExpression struct {
	Code       Code
	Statements []Node

	compiled *Program
}

func (n *CompoundExpression) Loc() Code { return n.Code }
func (n *CompoundExpression) node()     {}
func (n *CompoundExpression) String() string {
	parts := make([]string, len(n.Statements))
	for i, s := range n.Statements {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FuncArg wraps an expression in call-argument position.
type FuncArg struct {
	Code Code
	Expr Node
}

func (n *FuncArg) Loc() Code      { return n.Code }
func (n *FuncArg) node()          {}
func (n *FuncArg) String() string { return n.Expr.String() }

// FuncCall is a call by dispatch name, e.g. "bake $" with one argument.
type FuncCall struct {
	Code Code
	Name string
	Args []*FuncArg
}

func (n *FuncCall) Loc() Code { return n.Code }
func (n *FuncCall) node()     {}
func (n *FuncCall) String() string {
	return fmt.Sprintf("FuncCall(%q%s)", n.Name, argsString(n.Args))
}

// HangingCall is a call whose name ends in ":" and which owns the
// following more-indented lines as an unevaluated body.
type HangingCall struct {
	Code Code
	Name string
	Args []*FuncArg
	Body *CompoundExpression
}

func (n *HangingCall) Loc() Code { return n.Code }
func (n *HangingCall) node()     {}
func (n *HangingCall) String() string {
	body := "<nil>"
	if n.Body != nil {
		body = n.Body.String()
	}
	return fmt.Sprintf("HangingCall(%q%s, body=%s)", n.Name, argsString(n.Args), body)
}

func argsString(args []*FuncArg) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return ", " + strings.Join(parts, ", ")
}

// ---------------------------------------------------------------------------
// Visitor
// ---------------------------------------------------------------------------

// Visitor has one method per node type.
type Visitor interface {
	VisitLiteral(*Literal) error
	VisitBareWord(*BareWord) error
	VisitRef(*Ref) error
	VisitUnaryMinus(*UnaryMinus) error
	VisitBinOp(*BinOpNode) error
	VisitCompound(*CompoundExpression) error
	VisitFuncArg(*FuncArg) error
	VisitFuncCall(*FuncCall) error
	VisitHangingCall(*HangingCall) error
}

// Accept dispatches n to the matching Visitor method.
func Accept(n Node, v Visitor) error {
	switch n := n.(type) {
	case *Literal:
		return v.VisitLiteral(n)
	case *BareWord:
		return v.VisitBareWord(n)
	case *Ref:
		return v.VisitRef(n)
	case *UnaryMinus:
		return v.VisitUnaryMinus(n)
	case *BinOpNode:
		return v.VisitBinOp(n)
	case *CompoundExpression:
		return v.VisitCompound(n)
	case *FuncArg:
		return v.VisitFuncArg(n)
	case *FuncCall:
		return v.VisitFuncCall(n)
	case *HangingCall:
		return v.VisitHangingCall(n)
	case nil:
		return fmt.Errorf("compiler: nil node")
	}
	panic(fmt.Sprintf("compiler: unhandled node type %T", n))
}
