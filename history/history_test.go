package history

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func openTemp(t *testing.T, max int) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path, max)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestWriteAndGetLine(t *testing.T) {
	s, _ := openTemp(t, 0)

	for _, line := range []string{"print 1", "", "   ", "print 1", "set $x to 2  ", "print 1"} {
		if _, err := s.Write(line); err != nil {
			t.Fatalf("Write(%q): %v", line, err)
		}
	}

	want := []string{"print 1", "set $x to 2", "print 1"}
	if s.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", s.Len(), len(want))
	}
	for i, w := range want {
		got, err := s.GetLine(i)
		if err != nil || got != w {
			t.Errorf("GetLine(%d) = %q, %v; want %q", i, got, err, w)
		}
	}
	if _, err := s.GetLine(3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("GetLine(3) error = %v, want ErrOutOfRange", err)
	}
	if _, err := s.GetLine(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("GetLine(-1) error = %v, want ErrOutOfRange", err)
	}
	if got := s.Dump(); !reflect.DeepEqual(got, want) {
		t.Errorf("Dump = %v, want %v", got, want)
	}
}

func TestWriteReturnsLength(t *testing.T) {
	s, _ := openTemp(t, 0)
	n, err := s.Write("a")
	if err != nil || n != 1 {
		t.Errorf("Write = %d, %v; want 1", n, err)
	}
	n, _ = s.Write("b")
	if n != 2 {
		t.Errorf("Write = %d, want 2", n)
	}
}

func TestMaxPrunesOldest(t *testing.T) {
	s, _ := openTemp(t, 2)
	for _, line := range []string{"one", "two", "three"} {
		s.Write(line)
	}
	lines, err := s.Lines()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines, []string{"two", "three"}) {
		t.Errorf("Lines = %v, want [two three]", lines)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	s, path := openTemp(t, 0)
	s.Write("define 'x':\n    1")
	s.Close()

	again, err := Open(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if line, _ := again.GetLine(0); line != "define 'x':\n    1" {
		t.Errorf("GetLine(0) after reopen = %q", line)
	}
}

func TestSearch(t *testing.T) {
	s, _ := openTemp(t, 0)
	for _, line := range []string{"print 1", "set $x to 1", "print $x", "print 1"} {
		s.Write(line)
	}
	got, err := s.Search("print", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"print 1", "print $x"}) {
		t.Errorf("Search = %v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := Open(":memory:", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	s.Write("x")
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
