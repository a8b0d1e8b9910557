package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// ParseTreeTransformer: raw parse tree -> typed AST
// ---------------------------------------------------------------------------

// Parse parses source into a typed AST. chunk names the source in
// diagnostics; an empty chunk is allowed.
func Parse(source, chunk string) (*CompoundExpression, error) {
	raw, err := ParseRaw(source)
	if err != nil {
		code := Code{Line: 1, Chunk: chunk}
		if se, ok := err.(*SyntaxError); ok {
			code.Line = se.Pos.Line
		}
		return nil, &ParseError{Code: code, Err: err}
	}
	return NewTransformer(chunk).Transform(raw)
}

type transformFunc func(t *Transformer, n *RawNode) (Node, error)

var transforms map[RawTag]transformFunc

func init() {
	transforms = map[RawTag]transformFunc{
		TagCompound: (*Transformer).transformCompound,
		TagFuncCall: (*Transformer).transformFuncCall,
		TagBare:     (*Transformer).transformBare,
		TagRef:      (*Transformer).transformRef,
		TagNumber:   (*Transformer).transformNumber,
		TagString:   (*Transformer).transformString,
		TagParen:    (*Transformer).transformParen,
		TagSum:      (*Transformer).transformChain,
		TagProduct:  (*Transformer).transformChain,
		TagLogic:    (*Transformer).transformChain,
		TagNegate:   (*Transformer).transformNegate,
	}
}

// Transformer converts raw nodes into typed AST nodes.
type Transformer struct {
	chunk string
}

// NewTransformer creates a transformer that stamps chunk into every Code.
func NewTransformer(chunk string) *Transformer {
	return &Transformer{chunk: chunk}
}

// Transform converts a CompoundNode into a CompoundExpression.
func (t *Transformer) Transform(raw *RawNode) (*CompoundExpression, error) {
	n, err := t.transform(raw)
	if err != nil {
		return nil, err
	}
	ce, ok := n.(*CompoundExpression)
	if !ok {
		return nil, t.errorf(raw, "expected %s at top level, got %s", TagCompound, raw.Tag)
	}
	return ce, nil
}

func (t *Transformer) transform(n *RawNode) (Node, error) {
	fn, ok := transforms[n.Tag]
	if !ok {
		return nil, t.errorf(n, "unexpected %s", n.Tag)
	}
	return fn(t, n)
}

func (t *Transformer) code(n *RawNode) Code {
	return Code{Line: n.Line, Chunk: t.chunk}
}

func (t *Transformer) errorf(n *RawNode, format string, args ...interface{}) error {
	return &ParseError{Code: t.code(n), Err: fmt.Errorf(format, args...)}
}

func (t *Transformer) transformCompound(n *RawNode) (Node, error) {
	c := &LineCollector{}
	for _, ln := range n.Children {
		if ln.Tag != TagLine {
			return nil, t.errorf(ln, "expected %s, got %s", TagLine, ln.Tag)
		}
		entry := collectedLine{indent: ln.Indent, number: ln.Line}
		if len(ln.Children) > 0 {
			stmt, err := t.transform(ln.Children[0])
			if err != nil {
				return nil, err
			}
			entry.stmt = stmt
		}
		c.lines = append(c.lines, entry)
	}

	stmts, err := c.Collect()
	if err != nil {
		return nil, err
	}
	return &CompoundExpression{Code: t.code(n), Statements: stmts}, nil
}

func (t *Transformer) transformFuncCall(n *RawNode) (Node, error) {
	m := FuncCallMaker{t: t}
	return m.Make(n)
}

func (t *Transformer) transformBare(n *RawNode) (Node, error) {
	return &BareWord{Code: t.code(n), Word: n.Text}, nil
}

func (t *Transformer) transformRef(n *RawNode) (Node, error) {
	return &Ref{Code: t.code(n), Name: n.Text}, nil
}

func (t *Transformer) transformNumber(n *RawNode) (Node, error) {
	f, err := strconv.ParseFloat(n.Text, 64)
	if err != nil {
		return nil, t.errorf(n, "bad number %q", n.Text)
	}
	return &Literal{Code: t.code(n), Value: f}, nil
}

func (t *Transformer) transformString(n *RawNode) (Node, error) {
	return &Literal{Code: t.code(n), Value: n.Text}, nil
}

func (t *Transformer) transformParen(n *RawNode) (Node, error) {
	if len(n.Children) != 1 {
		return nil, t.errorf(n, "parentheses must hold exactly one statement")
	}
	inner, err := t.transform(n.Children[0])
	if err != nil {
		return nil, err
	}
	if hc, ok := inner.(*HangingCall); ok {
		return nil, t.errorf(n, "hanging call %q cannot appear inside parentheses", hc.Name)
	}
	return inner, nil
}

func (t *Transformer) transformChain(n *RawNode) (Node, error) {
	if len(n.Children)%2 == 0 {
		return nil, t.errorf(n, "malformed %s", n.Tag)
	}
	left, err := t.transform(n.Children[0])
	if err != nil {
		return nil, err
	}
	chain := &BinOpNode{Code: t.code(n), Left: left}
	for i := 1; i < len(n.Children); i += 2 {
		opNode := n.Children[i]
		op, ok := binOpBySymbol[opNode.Text]
		if opNode.Tag != TagOperator || !ok {
			return nil, t.errorf(opNode, "unknown operator %q", opNode.Text)
		}
		right, err := t.transform(n.Children[i+1])
		if err != nil {
			return nil, err
		}
		chain.Ops = append(chain.Ops, BinOpStep{Op: op, Right: right})
	}
	return chain, nil
}

func (t *Transformer) transformNegate(n *RawNode) (Node, error) {
	if len(n.Children) != 1 {
		return nil, t.errorf(n, "malformed %s", n.Tag)
	}
	operand, err := t.transform(n.Children[0])
	if err != nil {
		return nil, err
	}
	return &UnaryMinus{Code: t.code(n), Operand: operand}, nil
}

// ---------------------------------------------------------------------------
// LineCollector: nest lines into blocks by indentation
// ---------------------------------------------------------------------------

type collectedLine struct {
	indent int
	number int
	stmt   Node // nil for blank and comment-only lines
}

// LineCollector groups a flat sequence of lines into nested blocks. A
// hanging call claims every following line indented strictly deeper
// than its own line and stops at the first line that is not.
type LineCollector struct {
	lines []collectedLine
	pos   int
}

// Collect consumes all lines and returns the top-level statements.
func (c *LineCollector) Collect() ([]Node, error) {
	c.pos = 0
	return c.collect(-1)
}

func (c *LineCollector) collect(parentIndent int) ([]Node, error) {
	var stmts []Node
	for c.pos < len(c.lines) {
		ln := c.lines[c.pos]
		if ln.stmt == nil {
			c.pos++
			continue
		}
		if ln.indent <= parentIndent {
			break
		}
		c.pos++

		if hc, ok := ln.stmt.(*HangingCall); ok {
			body, err := c.collect(ln.indent)
			if err != nil {
				return nil, err
			}
			if len(body) == 0 {
				return nil, &MissingBodyError{Code: hc.Code, Name: hc.Name}
			}
			hc.Body = &CompoundExpression{Code: body[0].Loc(), Statements: body}
		}
		stmts = append(stmts, ln.stmt)
	}
	return stmts, nil
}

// ---------------------------------------------------------------------------
// FuncCallMaker: assemble dispatch names and arguments
// ---------------------------------------------------------------------------

// FuncCallMaker builds a call from a FuncCallNode. Bare words contribute
// their text to the dispatch name; every other element contributes "$"
// and becomes the next FuncArg.
type FuncCallMaker struct {
	t *Transformer
}

// Make returns a *FuncCall, or a *HangingCall when the node ends in ':'.
func (m FuncCallMaker) Make(n *RawNode) (Node, error) {
	var (
		words   []string
		args    []*FuncArg
		hanging bool
	)

	for _, child := range n.Children {
		switch child.Tag {
		case TagBare:
			words = append(words, child.Text)
		case TagColon:
			words = append(words, ":")
			hanging = true
		default:
			expr, err := m.t.transform(child)
			if err != nil {
				return nil, err
			}
			words = append(words, "$")
			args = append(args, &FuncArg{Code: m.t.code(child), Expr: expr})
		}
	}

	name := strings.Join(words, " ")
	if hanging {
		return &HangingCall{Code: m.t.code(n), Name: name, Args: args}, nil
	}
	return &FuncCall{Code: m.t.code(n), Name: name, Args: args}, nil
}
