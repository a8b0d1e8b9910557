package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the BackTalker lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenNumber // 42, 3.5
	TokenString // "hello", 'hello'
	TokenRef    // $name
	TokenWord   // bake, cake

	// Delimiters
	TokenLParen // (
	TokenRParen // )
	TokenColon  // :

	// Operators
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenAnd    // &&
	TokenOr     // ||
	TokenAndNot // &!
)

var tokenNames = map[TokenType]string{
	TokenEOF:    "EOF",
	TokenError:  "ERROR",
	TokenNumber: "NUMBER",
	TokenString: "STRING",
	TokenRef:    "REF",
	TokenWord:   "WORD",
	TokenLParen: "(",
	TokenRParen: ")",
	TokenColon:  ":",
	TokenPlus:   "+",
	TokenMinus:  "-",
	TokenStar:   "*",
	TokenSlash:  "/",
	TokenAnd:    "&&",
	TokenOr:     "||",
	TokenAndNot: "&!",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsOperator reports whether t is one of the infix operator tokens.
func (t TokenType) IsOperator() bool {
	switch t {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenAnd, TokenOr, TokenAndNot:
		return true
	}
	return false
}

// Position represents a source location.
type Position struct {
	Offset int // byte offset within the line
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // decoded text (string contents are unescaped, refs drop the $)
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}
