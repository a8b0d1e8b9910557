package compiler

import (
	"errors"
	"strings"
	"testing"
)

func compileString(t *testing.T, src string) *Program {
	t.Helper()
	ast, err := Parse(src, "test")
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	prog, err := Compile(ast, "test")
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return prog
}

func listing(p *Program) []string {
	out := make([]string, len(p.Code))
	for i, ins := range p.Code {
		out[i] = ins.String()
	}
	return out
}

func TestCompileInstructionSequences(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"42", []string{"PUSH 42", "EXPRESS"}},
		{"'hi'", []string{`PUSH "hi"`, "EXPRESS"}},
		{"$x", []string{"GET $x", "EXPRESS"}},
		{"-$x", []string{"PUSH 0", "GET $x", "SUB", "EXPRESS"}},
		{"3 + 4 * 2 - 1", []string{
			"PUSH 3", "PUSH 4", "PUSH 2", "MUL", "ADD", "PUSH 1", "SUB", "EXPRESS",
		}},
		{"$a &! $b", []string{"GET $a", "GET $b", "NOT", "EXPRESS"}},
		{"print $x", []string{`GET_VIVIFIABLE $x`, `CALL_FUNC "print $"/1`, "EXPRESS"}},
		{"print ($x + 1)", []string{"GET $x", "PUSH 1", "ADD", `CALL_FUNC "print $"/1`, "EXPRESS"}},
		{"print (length of $xs)", []string{
			"GET_VIVIFIABLE $xs", `CALL_FUNC "length of $"/1`, `CALL_FUNC "print $"/1`, "EXPRESS",
		}},
		{"a\nb", []string{`CALL_FUNC "a"/0`, "EXPRESS", `CALL_FUNC "b"/0`, "EXPRESS"}},
	}
	for _, tc := range tests {
		got := listing(compileString(t, tc.src))
		if strings.Join(got, "; ") != strings.Join(tc.want, "; ") {
			t.Errorf("Compile(%q) =\n  %s\nwant\n  %s", tc.src, strings.Join(got, "; "), strings.Join(tc.want, "; "))
		}
	}
}

func TestCompileHangingCallCarriesBody(t *testing.T) {
	prog := compileString(t, "when $x:\n  print 1\n  print 2")
	if len(prog.Code) != 3 {
		t.Fatalf("got %d instructions, want 3: %v", len(prog.Code), listing(prog))
	}
	call := prog.Code[1]
	if call.Op != OpCallHanging || call.Name != "when $ :" || call.Arity != 1 {
		t.Fatalf("instruction 1 = %s, want CALL_HANGING \"when $ :\"/1", call)
	}
	if call.Body == nil || len(call.Body.Statements) != 2 {
		t.Fatalf("body = %v, want two statements", call.Body)
	}
	// The body is data: nothing from it was emitted inline.
	for _, ins := range prog.Code {
		if ins.Op == OpPush {
			t.Errorf("body instruction %s compiled inline", ins)
		}
	}
}

func TestCompileBareExpressionHasNoExpress(t *testing.T) {
	prog, err := Compile(&Literal{Value: float64(1)}, "x")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := listing(prog); len(got) != 1 || got[0] != "PUSH 1" {
		t.Errorf("Compile(Literal) = %v, want [PUSH 1]", got)
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(&BareWord{Word: "stray"}, "")
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Errorf("bare word: error = %v, want CompileError", err)
	}

	_, err = Compile(&HangingCall{Name: "when $ :"}, "")
	var mb *MissingBodyError
	if !errors.As(err, &mb) {
		t.Errorf("hanging call without body: error = %v, want MissingBodyError", err)
	}
}

func TestCompoundProgramIsCached(t *testing.T) {
	ast, err := Parse("print 1", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p1, err := ast.Program()
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	p2, _ := ast.Program()
	if p1 != p2 {
		t.Error("Program compiled the same body twice")
	}
}

func TestProgramDisassembly(t *testing.T) {
	prog := compileString(t, "print 1")
	out := prog.String()
	for _, want := range []string{"; test (3 instructions)", "0000  L1", `CALL_FUNC "print $"/1`} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestCheck(t *testing.T) {
	if err := Check("when 1:\n    print 'x'\n    do:\n        print 'y'", "test"); err != nil {
		t.Errorf("Check(valid) = %v", err)
	}

	err := Check("print 1\nwhen 1:", "test")
	var mb *MissingBodyError
	if !errors.As(err, &mb) {
		t.Fatalf("Check(missing body) = %v, want MissingBodyError", err)
	}
	if mb.Code.Line != 2 {
		t.Errorf("MissingBodyError line = %d, want 2", mb.Code.Line)
	}

	var pe *ParseError
	if err := Check("print (1 +", "test"); !errors.As(err, &pe) {
		t.Errorf("Check(unbalanced) = %v, want ParseError", err)
	}
}

func TestDisassemble(t *testing.T) {
	ast, err := Parse("print 1\nrepeat 2 times:\n    print 2", "test")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := Disassemble(ast)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if n := strings.Count(got, "; test ("); n != 2 {
		t.Errorf("got %d program headers, want 2:\n%s", n, got)
	}
	if !strings.Contains(got, "; body of ") {
		t.Errorf("missing body header:\n%s", got)
	}
	if strings.Index(got, "L1") > strings.Index(got, "; body of ") {
		t.Errorf("outer program should come first:\n%s", got)
	}
}
