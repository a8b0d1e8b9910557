package compiler

import "strings"

// SignaturePrefix turns the text typed before the cursor into a
// signature prefix for completion: words are kept and every argument
// becomes "$". It returns false when the text cannot start a call, for
// example inside an unterminated string.
func SignaturePrefix(text string) (string, bool) {
	toks := NewLexer(text, 1, 1).Tokens()
	if last := toks[len(toks)-1]; last.Type == TokenError {
		return "", false
	}

	var parts []string
	depth := 0
	for _, tok := range toks {
		switch tok.Type {
		case TokenEOF:
		case TokenLParen:
			depth++
		case TokenRParen:
			if depth == 0 {
				return "", false
			}
			depth--
			if depth == 0 {
				parts = append(parts, "$")
			}
		case TokenWord:
			if depth == 0 {
				parts = append(parts, tok.Literal)
			}
		case TokenNumber, TokenString, TokenRef:
			if depth == 0 {
				parts = append(parts, "$")
			}
		default:
			if depth == 0 {
				return "", false
			}
		}
	}
	if depth > 0 {
		return "", false
	}

	prefix := strings.Join(parts, " ")
	typingWord := len(toks) >= 2 && toks[len(toks)-2].Type == TokenWord &&
		!strings.HasSuffix(text, " ") && !strings.HasSuffix(text, "\t")
	if !typingWord && prefix != "" {
		prefix += " "
	}
	return prefix, true
}

// OpensBlock reports whether line ends with the colon of a hanging call,
// so that an indented body must follow.
func OpensBlock(line string) bool {
	toks := NewLexer(line, 1, 1).Tokens()
	if len(toks) < 2 {
		return false
	}
	return toks[len(toks)-2].Type == TokenColon
}

// InsertWords returns the leading bare words of a signature remainder,
// stopping at the first placeholder.
func InsertWords(tokens []string) string {
	var words []string
	for _, tok := range tokens {
		if tok == "$" || tok == ":" {
			break
		}
		words = append(words, tok)
	}
	return strings.Join(words, " ")
}
