package vm

import (
	"sort"
)

// ---------------------------------------------------------------------------
// Scope: chained variables and functions
// ---------------------------------------------------------------------------

// Scope holds local variable bindings and a local function registry, and
// falls back to its parent for reads and lookups. Writes are always
// local. A child does not own its parent.
type Scope struct {
	parent *Scope
	vars   map[string]Value
	funcs  *Registry
}

// NewScope creates a scope whose reads fall through to parent. parent
// may be nil for a root scope.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent: parent,
		vars:   make(map[string]Value),
		funcs:  NewRegistry(),
	}
}

// Child creates a new scope below s.
func (s *Scope) Child() *Scope {
	return NewScope(s)
}

// Parent returns the enclosing scope, or nil at the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Root returns the outermost ancestor of s.
func (s *Scope) Root() *Scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// Get returns the value bound to name in s or the nearest ancestor.
func (s *Scope) Get(name string) (Value, bool) {
	v, _, ok := s.Lookup(name)
	return v, ok
}

// Lookup is Get that also reports which scope holds the binding.
func (s *Scope) Lookup(name string) (Value, *Scope, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, sc, true
		}
	}
	return nil, nil, false
}

// HasLocal reports whether name is bound in s itself.
func (s *Scope) HasLocal(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// Set binds name in s. It never touches an ancestor, so a local binding
// shadows any inherited one.
func (s *Scope) Set(name string, v Value) {
	s.vars[name] = v
}

// Locals returns the names bound directly in s, sorted.
func (s *Scope) Locals() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle returns a variable handle for name as seen from s. An unbound
// name yields an undefined handle owned by s.
func (s *Scope) Handle(name string) *Ref {
	v, owner, ok := s.Lookup(name)
	if !ok {
		return &Ref{Name: name, Owner: s}
	}
	return &Ref{Name: name, Defined: true, Value: v, Owner: owner}
}

// AddFunc expands every pattern and registers each resulting signature
// locally with impl. All patterns are checked before anything is
// registered. An optional FuncMeta is attached to every handle.
func (s *Scope) AddFunc(patterns []string, impl Impl, meta ...FuncMeta) error {
	var m FuncMeta
	if len(meta) > 0 {
		m = meta[0]
	}

	type expanded struct {
		pattern string
		defs    []*FuncDef
	}
	all := make([]expanded, 0, len(patterns))
	for _, p := range patterns {
		defs, err := CompilePattern(p)
		if err != nil {
			return err
		}
		all = append(all, expanded{p, defs})
	}

	for _, e := range all {
		hm := m
		hm.Pattern = e.pattern
		for _, def := range e.defs {
			s.funcs.Insert(&FuncHandle{
				Signature: def.Signature(),
				Vivify:    def.Vivify,
				Def:       def,
				Impl:      impl,
				Meta:      hm,
			})
			vmLog().Debugf("defined %q from %q", def.Signature(), e.pattern)
		}
	}
	return nil
}

// FindFunc returns the handle for sig from s or the nearest ancestor
// that defines it, or nil.
func (s *Scope) FindFunc(sig string) *FuncHandle {
	for sc := s; sc != nil; sc = sc.parent {
		if h := sc.funcs.Find(sig); h != nil {
			return h
		}
	}
	return nil
}

// Funcs returns the local registry of s.
func (s *Scope) Funcs() *Registry {
	return s.funcs
}

// Signatures returns every handle visible from s, sorted by signature.
// A definition in a nearer scope hides one with the same signature
// further up.
func (s *Scope) Signatures() []*FuncHandle {
	seen := make(map[string]bool)
	var out []*FuncHandle
	for sc := s; sc != nil; sc = sc.parent {
		sc.funcs.Walk(func(h *FuncHandle) {
			if seen[h.Signature] {
				return
			}
			seen[h.Signature] = true
			out = append(out, h)
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Signature < out[j].Signature
	})
	return out
}

// Complete returns the visible handles whose signature starts with
// prefix, nearest scope first.
func (s *Scope) Complete(prefix string) []*FuncHandle {
	seen := make(map[string]bool)
	var out []*FuncHandle
	for sc := s; sc != nil; sc = sc.parent {
		for _, h := range sc.funcs.Complete(prefix) {
			if !seen[h.Signature] {
				seen[h.Signature] = true
				out = append(out, h)
			}
		}
	}
	return out
}
