package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		line protocol.UInteger
		col  protocol.UInteger
		want string
	}{
		{"print $x", 0, 2, "print"},
		{"print $x", 0, 5, "print"},
		{"item 2 of $xs", 0, 8, "of"},
		{"first\nsecond line", 1, 3, "second"},
		{"a  b", 0, 2, ""},
		{"", 0, 0, ""},
		{"don't stop", 0, 1, "don't"},
		{"single line", 5, 0, ""},
	}
	for _, tc := range tests {
		got := extractWord(tc.text, protocol.Position{Line: tc.line, Character: tc.col})
		if got != tc.want {
			t.Errorf("extractWord(%q, %d:%d) = %q, want %q", tc.text, tc.line, tc.col, got, tc.want)
		}
	}
}

func TestLinePrefix(t *testing.T) {
	text := "first\n    item 2 o"
	got := linePrefix(text, protocol.Position{Line: 1, Character: 100})
	if got != "    item 2 o" {
		t.Errorf("linePrefix = %q", got)
	}
	if got := linePrefix(text, protocol.Position{Line: 9}); got != "" {
		t.Errorf("linePrefix beyond document = %q", got)
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Error("boolPtr(true) should point to true")
	}
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

const sampleDoc = `define 'double $:n':
    $n * 2
define 'twice :':
    yield
    yield
twice:
    print (double 4)
bake waffle`

func TestAnalyze_DefinesAndWarnings(t *testing.T) {
	a := analyze(testBase, sampleDoc, "doc")

	if len(a.problems) != 0 {
		t.Fatalf("problems = %v", a.problems)
	}
	if line, ok := a.defined["double $"]; !ok || line != 1 {
		t.Errorf("double $ defined at %d, %v; want line 1", line, ok)
	}
	if line := a.defined["twice :"]; line != 3 {
		t.Errorf("twice : defined at %d, want 3", line)
	}
	if len(a.warnings) != 1 {
		t.Fatalf("warnings = %v, want one for bake waffle", a.warnings)
	}
	if w := a.warnings[0]; w.Line != 8 || !strings.Contains(w.Message, "bake waffle") {
		t.Errorf("warning = %+v", w)
	}
	if testBase.FindFunc("double $") != nil {
		t.Error("document definitions leaked into the base scope")
	}
}

func TestAnalyze_Problems(t *testing.T) {
	a := analyze(testBase, "print 1\nwhen 1:", "doc")
	if len(a.problems) != 1 || a.problems[0].Kind != KindMissingBody || a.problems[0].Line != 2 {
		t.Errorf("problems = %+v", a.problems)
	}

	a = analyze(testBase, "print 1\ndefine 'bad <a|<b>>':\n    1", "doc")
	if len(a.problems) != 1 || a.problems[0].Kind != KindDefinition || a.problems[0].Line != 2 {
		t.Errorf("bad define problems = %+v", a.problems)
	}
}

func TestDiagnostics_Ranges(t *testing.T) {
	a := analyze(testBase, sampleDoc, "doc")
	diags := diagnostics(sampleDoc, a)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if *d.Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("severity = %v, want warning", *d.Severity)
	}
	if d.Range.Start.Line != 7 || d.Range.End.Character != protocol.UInteger(len("bake waffle")) {
		t.Errorf("range = %+v", d.Range)
	}
}

func TestComplete(t *testing.T) {
	a := analyze(testBase, sampleDoc, "doc")

	labels := func(items []protocol.CompletionItem) map[string]string {
		out := make(map[string]string)
		for _, it := range items {
			out[it.Label] = *it.InsertText
		}
		return out
	}

	got := labels(complete(a.scope, "    dou"))
	if got["double $"] != "double" {
		t.Errorf("completion of dou = %v", got)
	}

	got = labels(complete(a.scope, "item 2 o"))
	if got["item $ of $"] != "of" {
		t.Errorf("completion of item 2 o = %v", got)
	}

	got = labels(complete(a.scope, "print "))
	if len(got) != 0 {
		t.Errorf("completion after print = %v, want nothing to insert", got)
	}
}

func TestHover(t *testing.T) {
	a := analyze(testBase, sampleDoc, "doc")

	h := hover(a, 7, "print")
	if h == nil {
		t.Fatal("no hover for print")
	}
	md := h.Contents.(protocol.MarkupContent).Value
	if !strings.Contains(md, "**print $**") || !strings.Contains(md, "newline") {
		t.Errorf("hover = %q", md)
	}

	h = hover(a, 7, "double")
	if h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "User function") {
		t.Errorf("hover for double = %+v", h)
	}

	if h := hover(a, 8, "bake"); h != nil {
		t.Errorf("hover for unknown call = %+v", h)
	}
}

func TestLSP_DocumentStoreAndNavigation(t *testing.T) {
	s, err := NewLSP()
	if err != nil {
		t.Fatalf("NewLSP: %v", err)
	}
	defer s.worker.Stop()

	uri := protocol.DocumentUri("file:///sample.bt")
	diags := s.update(uri, sampleDoc)
	if len(diags) != 1 {
		t.Errorf("got %d diagnostics, want 1", len(diags))
	}

	def, err := s.textDocumentDefinition(nil, &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 6, Character: 12},
		},
	})
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	locs, ok := def.([]protocol.Location)
	if !ok || len(locs) != 1 || locs[0].Range.Start.Line != 0 {
		t.Errorf("definition of double = %+v", def)
	}

	refs, err := s.textDocumentReferences(nil, &protocol.ReferenceParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 3, Character: 6},
		},
	})
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("references to yield = %d, want 2", len(refs))
	}

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()
	if _, ok := s.document(uri); ok {
		t.Error("document still open")
	}
}
