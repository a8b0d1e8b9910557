package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lmorg/readline"

	"github.com/chazu/backtalker/history"
	"github.com/chazu/backtalker/vm"
)

func newTestREPL(t *testing.T) (*repl, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	rt, err := newRuntime(out)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	t.Cleanup(rt.stop)

	hist, err := history.Open(history.Memory, 0)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	return &repl{rt: rt, out: out, hist: hist}, out
}

func TestREPLEvaluatesLines(t *testing.T) {
	r, out := newTestREPL(t)

	r.feed("set $x to 4")
	r.feed("$x * 2")
	if got := out.String(); got != "=> 4\n=> 8\n" {
		t.Errorf("output = %q, want %q", got, "=> 4\n=> 8\n")
	}

	out.Reset()
	r.feed("print 'hi'")
	if got := out.String(); got != "hi\n" {
		t.Errorf("print output = %q", got)
	}
}

func TestREPLCollectsBlocks(t *testing.T) {
	r, out := newTestREPL(t)

	r.feed("repeat 2 times:")
	if !r.continuing() {
		t.Fatal("a line ending in ':' should open a block")
	}
	r.feed("    print 'again'")
	if out.Len() != 0 {
		t.Fatalf("block ran before it was closed: %q", out.String())
	}
	r.feed("")
	if r.continuing() {
		t.Error("an empty line should close the block")
	}
	if got := out.String(); got != "again\nagain\n" {
		t.Errorf("output = %q", got)
	}
}

func TestREPLQuit(t *testing.T) {
	r, _ := newTestREPL(t)
	if !r.feed("") {
		t.Error("an empty line should not end the session")
	}
	for _, line := range []string{"exit", "  quit  "} {
		if r.feed(line) {
			t.Errorf("feed(%q) = true, want false", line)
		}
	}
}

func TestREPLReportsErrors(t *testing.T) {
	r, out := newTestREPL(t)
	r.feed("$missing + 1")
	if !strings.HasPrefix(out.String(), "Error: ") {
		t.Errorf("output = %q, want an error", out.String())
	}
}

func TestREPLCommands(t *testing.T) {
	r, out := newTestREPL(t)

	r.feed("set $answer to 42")
	r.feed(":vars")
	if !strings.Contains(out.String(), "$answer = 42") {
		t.Errorf(":vars output = %q", out.String())
	}

	out.Reset()
	r.feed(":functions item")
	if !strings.Contains(out.String(), "item $ of $") {
		t.Errorf(":functions output = %q", out.String())
	}

	out.Reset()
	r.feed(":dump print 1")
	if !strings.Contains(out.String(), "; <repl> (") {
		t.Errorf(":dump output = %q", out.String())
	}

	out.Reset()
	r.feed(":parked")
	if got := out.String(); got != "Nothing parked\n" {
		t.Errorf(":parked output = %q", got)
	}

	out.Reset()
	r.feed(":wat")
	if !strings.HasPrefix(out.String(), "Unknown command: :wat") {
		t.Errorf("unknown command output = %q", out.String())
	}
}

func TestREPLHistoryCommand(t *testing.T) {
	r, out := newTestREPL(t)
	for _, line := range []string{"print 1", "print 2", "set $x to 3"} {
		if _, err := r.hist.Write(line); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	r.feed(":history print")
	if got := out.String(); got != "  print 1\n  print 2\n" {
		t.Errorf(":history output = %q", got)
	}
}

func TestREPLComplete(t *testing.T) {
	r, _ := newTestREPL(t)

	tests := []struct {
		typed   string
		partial string
		want    string
	}{
		{"pri", "pri", "nt"},
		{"item 2 o", "o", "f"},
		{"for ", "", "each"},
	}
	for _, tc := range tests {
		line := []rune(tc.typed)
		partial, suggestions, _, _ := r.complete(line, len(line), readline.DelayedTabContext{})
		if partial != tc.partial {
			t.Errorf("complete(%q) partial = %q, want %q", tc.typed, partial, tc.partial)
		}
		found := false
		for _, s := range suggestions {
			if s == tc.want {
				found = true
			}
		}
		if !found {
			t.Errorf("complete(%q) = %v, want %q among them", tc.typed, suggestions, tc.want)
		}
	}
}

func TestRuntimeRunWaits(t *testing.T) {
	out := &bytes.Buffer{}
	rt, err := newRuntime(out)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	defer rt.stop()

	v, err := rt.run("print 'start'\nwait 20 milliseconds\nprint 'end'\n7", "test")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v != 7.0 {
		t.Errorf("result = %v, want 7", v)
	}
	if got := out.String(); got != "start\nend\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRuntimeRunReportsResumedErrors(t *testing.T) {
	rt, err := newRuntime(&bytes.Buffer{})
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	defer rt.stop()

	_, err = rt.run("wait 10 milliseconds\n$missing + 1", "test")
	var le *vm.LookupError
	if !errors.As(err, &le) {
		t.Errorf("run error = %v, want LookupError", err)
	}

	// The runtime stays usable after a failed run.
	v, err := rt.run("1 + 1", "test")
	if err != nil || v != 2.0 {
		t.Errorf("run after failure = %v, %v; want 2", v, err)
	}
}
