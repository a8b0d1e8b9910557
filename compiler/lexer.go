package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for a single BackTalker source line
// ---------------------------------------------------------------------------

// Lexer tokenizes one line of BackTalker source. Lines never span
// tokens, so the parser feeds the lexer line by line.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line number reported in positions
	col     int  // current column (1-based)
}

// NewLexer creates a lexer for the given line. col is the column of the
// first character of input, so indentation stripped by the caller is
// still reflected in token positions.
func NewLexer(input string, line, col int) *Lexer {
	l := &Lexer{
		input: input,
		line:  line,
		col:   col - 1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// atEOF reports whether the whole line has been consumed. A NUL byte in
// the input is a character like any other.
func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// Tokens lexes the whole line. The final token is always EOF or ERROR.
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return toks
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.atEOF():
		return Token{Type: TokenEOF, Pos: pos}

	case l.ch == 0:
		l.readChar()
		return Token{Type: TokenError, Literal: "unexpected NUL character", Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == ':':
		l.readChar()
		return Token{Type: TokenColon, Literal: ":", Pos: pos}

	case l.ch == '+':
		l.readChar()
		return Token{Type: TokenPlus, Literal: "+", Pos: pos}

	case l.ch == '-':
		l.readChar()
		return Token{Type: TokenMinus, Literal: "-", Pos: pos}

	case l.ch == '*':
		l.readChar()
		return Token{Type: TokenStar, Literal: "*", Pos: pos}

	case l.ch == '/':
		l.readChar()
		return Token{Type: TokenSlash, Literal: "/", Pos: pos}

	case l.ch == '&':
		l.readChar()
		switch l.ch {
		case '&':
			l.readChar()
			return Token{Type: TokenAnd, Literal: "&&", Pos: pos}
		case '!':
			l.readChar()
			return Token{Type: TokenAndNot, Literal: "&!", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected '&'", Pos: pos}

	case l.ch == '|':
		l.readChar()
		if l.ch == '|' {
			l.readChar()
			return Token{Type: TokenOr, Literal: "||", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected '|'", Pos: pos}

	case l.ch == '"' || l.ch == '\'':
		return l.readString(pos)

	case l.ch == '$':
		return l.readRef(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch):
		return l.readWord(pos)
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: "unexpected character " + string(ch), Pos: pos}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for unicode.IsSpace(l.ch) {
			l.readChar()
		}
		if l.ch != '#' {
			return
		}
		// Comment runs to end of line
		for !l.atEOF() {
			l.readChar()
		}
	}
}

func (l *Lexer) readWord(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '\'' {
		l.readChar()
	}
	return Token{Type: TokenWord, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readRef(pos Position) Token {
	l.readChar() // skip $
	if !isLetter(l.ch) && l.ch != '_' {
		return Token{Type: TokenError, Literal: "expected variable name after '$'", Pos: pos}
	}
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return Token{Type: TokenRef, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: pos}
}

// readString reads a quoted string. Both quote styles understand the
// usual backslash escapes.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar()

	var b strings.Builder
	for l.ch != quote {
		if l.atEOF() {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			if l.atEOF() {
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			}
			switch l.ch {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '\\', '"', '\'':
				b.WriteRune(l.ch)
			default:
				return Token{Type: TokenError, Literal: "unknown escape \\" + string(l.ch), Pos: pos}
			}
			l.readChar()
			continue
		}
		b.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // closing quote
	return Token{Type: TokenString, Literal: b.String(), Pos: pos}
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
