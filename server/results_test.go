package server

import (
	"testing"
	"time"

	"github.com/chazu/backtalker/vm"
)

func TestResultStore_CreateLookupRelease(t *testing.T) {
	s := NewResultStore()
	r := vm.NewFuncResult()

	id := s.Create(r, nil, "s1")
	p, ok := s.lookup(id)
	if !ok || p.result != r {
		t.Fatalf("lookup(%s) = %v, %v", id, p, ok)
	}
	if other := s.Create(r, nil, "s1"); other == id {
		t.Errorf("ids are not unique: %s", id)
	}

	s.Release(id)
	if _, ok := s.lookup(id); ok {
		t.Error("released result still present")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestResultStore_ReleaseSession(t *testing.T) {
	s := NewResultStore()
	a := s.Create(vm.NewFuncResult(), nil, "s1")
	b := s.Create(vm.NewFuncResult(), nil, "s2")

	s.ReleaseSession("s1")
	if _, ok := s.lookup(a); ok {
		t.Error("s1 result survived ReleaseSession")
	}
	if _, ok := s.lookup(b); !ok {
		t.Error("s2 result was released")
	}
}

func TestResultStore_Sweep(t *testing.T) {
	s := NewResultStore()
	stale := s.Create(vm.NewFuncResult(), nil, "s1")
	fresh := s.Create(vm.NewFuncResult(), nil, "s1")

	p, _ := s.lookup(stale)
	p.lastUsed = time.Now().Add(-time.Hour)

	if n := s.Sweep(time.Minute); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, ok := s.lookup(fresh); !ok {
		t.Error("fresh result was swept")
	}
}
