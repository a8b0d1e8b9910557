package vm

import (
	"fmt"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// PatternCompiler: expand function patterns into concrete signatures
// ---------------------------------------------------------------------------

// Vivify is the requirement a variable slot places on its argument.
type Vivify int

const (
	VivifyNever  Vivify = iota // $   : must be a value or a defined variable
	VivifyAuto                 // $!  : an undefined variable is passed as a handle
	VivifyAlways               // $!! : must be a variable; the handle is passed
)

func (v Vivify) String() string {
	switch v {
	case VivifyNever:
		return "NEVER"
	case VivifyAuto:
		return "AUTO"
	case VivifyAlways:
		return "ALWAYS"
	}
	return fmt.Sprintf("Vivify(%d)", int(v))
}

// PieceKind distinguishes pattern pieces.
type PieceKind int

const (
	PieceBare PieceKind = iota
	PieceVar
	PieceChoice
)

// Piece is one element of a parsed pattern.
type Piece struct {
	Kind    PieceKind
	Word    string    // PieceBare; ":" for the hanging marker
	Vivify  Vivify    // PieceVar
	Name    string    // PieceVar, PieceChoice; optional parameter name
	Options [][]Piece // PieceChoice
}

// ParamDesc describes one named parameter of a FuncDef. A parameter
// either binds the positional argument at Arg, or, when Fixed is set,
// the ordinal of the choice option that produced the signature.
type ParamDesc struct {
	Name  string
	Arg   int
	Fixed bool
	Index int
}

// FuncDef is one fully concrete signature produced by a pattern.
type FuncDef struct {
	Tokens []string // bare words, "$" placeholders and ":"
	Vivify []Vivify // one per "$", in order
	Params []ParamDesc
}

// Signature returns the space-joined dispatch string.
func (d *FuncDef) Signature() string {
	return strings.Join(d.Tokens, " ")
}

// Arity returns the number of positional arguments.
func (d *FuncDef) Arity() int {
	return len(d.Vivify)
}

// Hanging reports whether the signature ends in the ":" marker.
func (d *FuncDef) Hanging() bool {
	return len(d.Tokens) > 0 && d.Tokens[len(d.Tokens)-1] == ":"
}

// Parameterize maps bound positional arguments onto named parameters.
func (d *FuncDef) Parameterize(args []Value) map[string]Value {
	params := make(map[string]Value, len(d.Params))
	for _, p := range d.Params {
		if p.Fixed {
			params[p.Name] = float64(p.Index)
			continue
		}
		if p.Arg < len(args) {
			params[p.Name] = args[p.Arg]
		}
	}
	return params
}

func (d *FuncDef) clone() *FuncDef {
	return &FuncDef{
		Tokens: append([]string(nil), d.Tokens...),
		Vivify: append([]Vivify(nil), d.Vivify...),
		Params: append([]ParamDesc(nil), d.Params...),
	}
}

var (
	bareRe   = regexp.MustCompile(`^[a-zA-Z]+$`)
	varRe    = regexp.MustCompile(`^\$(!{0,2})(?::([a-zA-Z]+))?$`)
	suffixRe = regexp.MustCompile(`^:([a-zA-Z]+)`)
)

// CompilePattern parses and expands a pattern.
func CompilePattern(pattern string) ([]*FuncDef, error) {
	pieces, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	return Expand(pieces), nil
}

// ParsePattern parses a pattern into pieces. Malformed input, nested
// choices and misplaced ":" markers are DefinitionErrors.
func ParsePattern(pattern string) ([]Piece, error) {
	fail := func(format string, args ...interface{}) ([]Piece, error) {
		return nil, &DefinitionError{Pattern: pattern, Msg: fmt.Sprintf(format, args...)}
	}

	var pieces []Piece
	s := pattern
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			break
		}

		if s[0] == '<' {
			end := strings.IndexByte(s, '>')
			if end < 0 {
				return fail("unterminated choice")
			}
			body := s[1:end]
			if strings.ContainsRune(body, '<') {
				return fail("nested choices are not allowed")
			}
			choice := Piece{Kind: PieceChoice}
			for _, opt := range strings.Split(body, "|") {
				var option []Piece
				for _, tok := range strings.Fields(opt) {
					p, ok := parseSimplePiece(tok)
					if !ok {
						return fail("bad token %q in choice", tok)
					}
					option = append(option, p)
				}
				choice.Options = append(choice.Options, option)
			}
			s = s[end+1:]
			if m := suffixRe.FindStringSubmatch(s); m != nil {
				choice.Name = m[1]
				s = s[len(m[0]):]
			}
			if s != "" && s[0] != ' ' && s[0] != '\t' {
				return fail("unexpected %q after choice", s)
			}
			pieces = append(pieces, choice)
			continue
		}

		end := strings.IndexAny(s, " \t")
		if end < 0 {
			end = len(s)
		}
		tok := s[:end]
		s = s[end:]
		if strings.ContainsAny(tok, "<>|") {
			return fail("bad token %q", tok)
		}
		p, ok := parseSimplePiece(tok)
		if !ok {
			return fail("bad token %q", tok)
		}
		pieces = append(pieces, p)
	}

	if len(pieces) == 0 {
		return fail("empty pattern")
	}
	if err := checkColons(pieces); err != nil {
		return fail("%s", err)
	}
	return pieces, nil
}

func parseSimplePiece(tok string) (Piece, bool) {
	switch {
	case tok == ":":
		return Piece{Kind: PieceBare, Word: ":"}, true
	case bareRe.MatchString(tok):
		return Piece{Kind: PieceBare, Word: tok}, true
	}
	m := varRe.FindStringSubmatch(tok)
	if m == nil {
		return Piece{}, false
	}
	return Piece{Kind: PieceVar, Vivify: Vivify(len(m[1])), Name: m[2]}, true
}

// checkColons enforces that ":" only ever ends a signature: it may be
// the last piece, or the last token of an option of a final choice.
func checkColons(pieces []Piece) error {
	for i, p := range pieces {
		last := i == len(pieces)-1
		switch p.Kind {
		case PieceBare:
			if p.Word == ":" && !last {
				return fmt.Errorf("':' must end the pattern")
			}
		case PieceChoice:
			for _, opt := range p.Options {
				for j, op := range opt {
					if op.Word == ":" && (!last || j != len(opt)-1) {
						return fmt.Errorf("':' must end the pattern")
					}
				}
			}
		}
	}
	return nil
}

// Expand applies the expansion algebra left to right: bare and variable
// pieces extend every candidate; a choice replaces the candidates with
// their cross product against its options.
func Expand(pieces []Piece) []*FuncDef {
	candidates := []*FuncDef{{}}
	for _, p := range pieces {
		switch p.Kind {
		case PieceBare, PieceVar:
			for _, c := range candidates {
				extend(c, p)
			}
		case PieceChoice:
			next := make([]*FuncDef, 0, len(candidates)*len(p.Options))
			for _, c := range candidates {
				for idx, opt := range p.Options {
					branch := c.clone()
					for _, op := range opt {
						extend(branch, op)
					}
					if p.Name != "" {
						branch.Params = append(branch.Params, ParamDesc{Name: p.Name, Fixed: true, Index: idx})
					}
					next = append(next, branch)
				}
			}
			candidates = next
		}
	}
	return candidates
}

func extend(d *FuncDef, p Piece) {
	if p.Kind == PieceBare {
		d.Tokens = append(d.Tokens, p.Word)
		return
	}
	d.Tokens = append(d.Tokens, "$")
	d.Vivify = append(d.Vivify, p.Vivify)
	if p.Name != "" {
		d.Params = append(d.Params, ParamDesc{Name: p.Name, Arg: len(d.Vivify) - 1})
	}
}
