package vm

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

func signatures(defs []*FuncDef) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Signature()
	}
	return out
}

func TestCompilePatternSignatures(t *testing.T) {
	tests := []struct {
		pattern string
		want    []string
	}{
		{"print $", []string{"print $"}},
		{"bake <cake|pie>", []string{"bake cake", "bake pie"}},
		{"bake <cake|pie|tart> $", []string{"bake cake $", "bake pie $", "bake tart $"}},
		{"<a|b> <x|y>", []string{"a x", "a y", "b x", "b y"}},
		{"set $!! to :", []string{"set $ to :"}},
		{"do <|:>", []string{"do", "do :"}},
		{"item $ <of|from the> $", []string{"item $ of $", "item $ from the $"}},
		{"<my $|the $!> thing", []string{"my $ thing", "the $ thing"}},
	}
	for _, tc := range tests {
		defs, err := CompilePattern(tc.pattern)
		if err != nil {
			t.Errorf("CompilePattern(%q): %v", tc.pattern, err)
			continue
		}
		got := signatures(defs)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Errorf("CompilePattern(%q) = %q, want %q", tc.pattern, got, tc.want)
		}
	}
}

func TestChoiceArityProduct(t *testing.T) {
	defs, err := CompilePattern("<a|b|c> mid <x|y> end <p|q|r|s>")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if len(defs) != 3*2*4 {
		t.Fatalf("got %d signatures, want %d", len(defs), 3*2*4)
	}
	seen := make(map[string]bool)
	for _, sig := range signatures(defs) {
		if seen[sig] {
			t.Errorf("signature %q produced twice", sig)
		}
		seen[sig] = true
	}
}

func TestSingleChoiceDiffersOnlyInOption(t *testing.T) {
	defs, err := CompilePattern("put $ <in|on|under> the $")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("got %d signatures, want 3", len(defs))
	}
	for _, d := range defs {
		if len(d.Tokens) != 5 || d.Tokens[0] != "put" || d.Tokens[3] != "the" || d.Tokens[4] != "$" {
			t.Errorf("signature %q changed outside the choice", d.Signature())
		}
	}
}

func TestVivifyMarkers(t *testing.T) {
	tests := []struct {
		pattern string
		want    Vivify
	}{
		{"f $", VivifyNever},
		{"f $!", VivifyAuto},
		{"f $!!", VivifyAlways},
		{"f $!:name", VivifyAuto},
	}
	for _, tc := range tests {
		defs, err := CompilePattern(tc.pattern)
		if err != nil {
			t.Errorf("CompilePattern(%q): %v", tc.pattern, err)
			continue
		}
		if got := defs[0].Vivify; len(got) != 1 || got[0] != tc.want {
			t.Errorf("CompilePattern(%q) vivify = %v, want [%v]", tc.pattern, got, tc.want)
		}
	}
}

func TestNamedParameters(t *testing.T) {
	defs, err := CompilePattern("bake <cake|pie>:target for $:who")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	for i, d := range defs {
		params := d.Parameterize([]Value{"ann"})
		if params["target"] != float64(i) {
			t.Errorf("%q: target = %v, want %d", d.Signature(), params["target"], i)
		}
		if params["who"] != "ann" {
			t.Errorf("%q: who = %v, want ann", d.Signature(), params["who"])
		}
	}
}

func TestParameterPositionsInsideChoices(t *testing.T) {
	defs, err := CompilePattern("<$:a|x $:a $:b> then $:c")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	p0 := defs[0].Parameterize([]Value{1.0, 2.0})
	if p0["a"] != 1.0 || p0["c"] != 2.0 {
		t.Errorf("first form params = %v", p0)
	}
	p1 := defs[1].Parameterize([]Value{1.0, 2.0, 3.0})
	if p1["a"] != 1.0 || p1["b"] != 2.0 || p1["c"] != 3.0 {
		t.Errorf("second form params = %v", p1)
	}
}

func TestDefinitionErrors(t *testing.T) {
	bad := []string{
		"",
		"   ",
		"bake <cake|<pie|tart>>",
		"bake <cake|pie",
		"bake cake>",
		"bake $x",
		"bake $!!!",
		"bake 42",
		"when : then",
		"<a:|b> c",
		"bake <cake|pie>:",
		"bake <cake|pie>x",
		"a|b",
	}
	for _, p := range bad {
		_, err := CompilePattern(p)
		var de *DefinitionError
		if !errors.As(err, &de) {
			t.Errorf("CompilePattern(%q) error = %v, want DefinitionError", p, err)
		}
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	a, _ := CompilePattern("<x|y> <p|q>")
	b, _ := CompilePattern("<x|y> <p|q>")
	sa, sb := signatures(a), signatures(b)
	if !sort.StringsAreSorted(sa) {
		t.Errorf("signatures not in option order: %v", sa)
	}
	if strings.Join(sa, ",") != strings.Join(sb, ",") {
		t.Errorf("expansions differ: %v vs %v", sa, sb)
	}
}
