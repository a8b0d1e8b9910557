package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Raw parse tree
// ---------------------------------------------------------------------------

// RawTag identifies the grammar production a RawNode came from.
type RawTag int

const (
	TagCompound RawTag = iota // whole chunk; children are LineNodes
	TagLine                   // one physical line; zero or one child
	TagFuncCall               // call line: bare words, atoms, optional colon
	TagBare                   // bare word inside a call
	TagRef                    // $name
	TagNumber                 // numeric literal
	TagString                 // string literal
	TagParen                  // ( statement )
	TagColon                  // trailing ':' of a hanging call
	TagSum                    // operand (op operand)* over + -
	TagProduct                // operand (op operand)* over * /
	TagLogic                  // operand (op operand)* over && || &!
	TagNegate                 // unary minus
	TagOperator               // operator between operands of Sum/Product/Logic
)

var rawTagNames = map[RawTag]string{
	TagCompound: "CompoundNode",
	TagLine:     "LineNode",
	TagFuncCall: "FuncCallNode",
	TagBare:     "BareNode",
	TagRef:      "RefNode",
	TagNumber:   "NumberLiteral",
	TagString:   "StringLiteral",
	TagParen:    "ParenNode",
	TagColon:    "ColonNode",
	TagSum:      "SumNode",
	TagProduct:  "ProductNode",
	TagLogic:    "LogicNode",
	TagNegate:   "NegateNode",
	TagOperator: "OperatorNode",
}

func (t RawTag) String() string {
	if name, ok := rawTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RawTag(%d)", t)
}

// RawNode is an untyped parse tree node. It carries only the tag, the
// literal text, and its children; typing happens in the Transformer.
type RawNode struct {
	Tag      RawTag
	Text     string
	Line     int
	Indent   int // leading whitespace length, LineNodes only
	Children []*RawNode
}

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser producing raw trees
// ---------------------------------------------------------------------------

// Parser turns BackTalker source text into a raw parse tree.
type Parser struct {
	toks []Token
	pos  int
	err  error
}

// ParseRaw parses a whole chunk. Every physical line becomes a LineNode,
// blank and comment-only lines included, so line numbers stay exact.
func ParseRaw(source string) (*RawNode, error) {
	root := &RawNode{Tag: TagCompound, Line: 1}

	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	for i, text := range lines {
		lineNo := i + 1
		indent := len(text) - len(strings.TrimLeft(text, " \t"))
		line := &RawNode{Tag: TagLine, Line: lineNo, Indent: indent}

		p := &Parser{toks: NewLexer(text[indent:], lineNo, indent+1).Tokens()}
		if !p.curIs(TokenEOF) {
			stmt := p.parseStatement(TokenEOF)
			if p.err == nil && !p.curIs(TokenEOF) {
				p.errorf("unexpected %s", p.cur().Type)
			}
			if p.err != nil {
				return nil, p.err
			}
			line.Children = []*RawNode{stmt}
		}
		root.Children = append(root.Children, line)
	}

	return root, nil
}

func (p *Parser) cur() Token {
	return p.toks[p.pos]
}

func (p *Parser) curIs(t TokenType) bool {
	return p.cur().Type == t
}

func (p *Parser) peekIs(t TokenType) bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+1].Type == t
}

func (p *Parser) nextToken() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

// errorf records the first parse error; later ones are noise.
func (p *Parser) errorf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	tok := p.cur()
	if tok.Type == TokenError {
		p.err = &SyntaxError{Pos: tok.Pos, Msg: tok.Literal}
		return
	}
	p.err = &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

// isCall reports whether the statement starting at the current token
// contains a bare word outside parentheses before end.
func (p *Parser) isCall(end TokenType) bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			if depth == 0 {
				return false
			}
			depth--
		case TokenWord:
			if depth == 0 {
				return true
			}
		case TokenEOF, TokenError:
			return false
		}
	}
	return false
}

// parseStatement parses a call or an expression, stopping before end.
func (p *Parser) parseStatement(end TokenType) *RawNode {
	if p.isCall(end) {
		return p.parseCall(end)
	}
	return p.parseLogic()
}

func (p *Parser) parseCall(end TokenType) *RawNode {
	call := &RawNode{Tag: TagFuncCall, Line: p.cur().Pos.Line}

	for p.err == nil && !p.curIs(end) && !p.curIs(TokenEOF) {
		tok := p.cur()
		switch {
		case tok.Type == TokenWord:
			call.Children = append(call.Children, &RawNode{Tag: TagBare, Text: tok.Literal, Line: tok.Pos.Line})
			p.nextToken()

		case tok.Type == TokenColon:
			p.nextToken()
			if !p.curIs(end) && !p.curIs(TokenEOF) {
				p.errorf("':' must end the call")
				return call
			}
			call.Children = append(call.Children, &RawNode{Tag: TagColon, Text: ":", Line: tok.Pos.Line})

		case tok.Type == TokenMinus && p.peekIs(TokenNumber):
			p.nextToken()
			num := p.cur()
			call.Children = append(call.Children, &RawNode{Tag: TagNumber, Text: "-" + num.Literal, Line: num.Pos.Line})
			p.nextToken()

		case tok.Type.IsOperator():
			p.errorf("operator %s inside a call; wrap the expression in parentheses", tok.Type)
			return call

		default:
			atom := p.parseAtom()
			if atom == nil {
				return call
			}
			call.Children = append(call.Children, atom)
		}
	}

	return call
}

// parseChain parses operand (op operand)* and collapses a lone operand.
func (p *Parser) parseChain(tag RawTag, operand func() *RawNode, ops ...TokenType) *RawNode {
	first := operand()
	if first == nil {
		return nil
	}
	node := &RawNode{Tag: tag, Line: first.Line, Children: []*RawNode{first}}

	for p.err == nil {
		tok := p.cur()
		matched := false
		for _, op := range ops {
			if tok.Type == op {
				matched = true
				break
			}
		}
		if !matched {
			break
		}
		p.nextToken()
		right := operand()
		if right == nil {
			return nil
		}
		node.Children = append(node.Children,
			&RawNode{Tag: TagOperator, Text: tok.Literal, Line: tok.Pos.Line},
			right,
		)
	}

	if len(node.Children) == 1 {
		return first
	}
	return node
}

func (p *Parser) parseLogic() *RawNode {
	return p.parseChain(TagLogic, p.parseSum, TokenAnd, TokenOr, TokenAndNot)
}

func (p *Parser) parseSum() *RawNode {
	return p.parseChain(TagSum, p.parseProduct, TokenPlus, TokenMinus)
}

func (p *Parser) parseProduct() *RawNode {
	return p.parseChain(TagProduct, p.parseUnary, TokenStar, TokenSlash)
}

func (p *Parser) parseUnary() *RawNode {
	if p.curIs(TokenMinus) {
		tok := p.cur()
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &RawNode{Tag: TagNegate, Text: "-", Line: tok.Pos.Line, Children: []*RawNode{operand}}
	}
	return p.parseAtom()
}

func (p *Parser) parseAtom() *RawNode {
	tok := p.cur()
	switch tok.Type {
	case TokenNumber:
		p.nextToken()
		return &RawNode{Tag: TagNumber, Text: tok.Literal, Line: tok.Pos.Line}

	case TokenString:
		p.nextToken()
		return &RawNode{Tag: TagString, Text: tok.Literal, Line: tok.Pos.Line}

	case TokenRef:
		p.nextToken()
		return &RawNode{Tag: TagRef, Text: tok.Literal, Line: tok.Pos.Line}

	case TokenLParen:
		p.nextToken()
		if p.curIs(TokenRParen) {
			p.errorf("empty parentheses")
			return nil
		}
		inner := p.parseStatement(TokenRParen)
		if p.err != nil || inner == nil {
			return nil
		}
		if !p.curIs(TokenRParen) {
			p.errorf("expected ), got %s", p.cur().Type)
			return nil
		}
		p.nextToken()
		return &RawNode{Tag: TagParen, Line: tok.Pos.Line, Children: []*RawNode{inner}}

	case TokenEOF:
		p.errorf("unexpected end of line")
		return nil
	}

	p.errorf("unexpected %s", tok.Type)
	return nil
}
