package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Library: named bundles of functions and values
// ---------------------------------------------------------------------------

// FuncSpec describes one library entry. Includes names other entries of
// the same library that must be installed alongside it.
type FuncSpec struct {
	Name     string
	Patterns []string
	Impl     Impl
	Help     string
	Includes []string
}

// Library collects function entries and variable refs and installs them
// into scopes.
type Library struct {
	Name string

	funcs map[string]FuncSpec
	refs  map[string]Value
	order []string
}

// NewLibrary returns an empty library.
func NewLibrary(name string) *Library {
	return &Library{
		Name:  name,
		funcs: make(map[string]FuncSpec),
		refs:  make(map[string]Value),
	}
}

// Func adds an entry. Adding a name twice replaces the earlier entry.
func (l *Library) Func(spec FuncSpec) *Library {
	if !l.has(spec.Name) {
		l.order = append(l.order, spec.Name)
	}
	delete(l.refs, spec.Name)
	l.funcs[spec.Name] = spec
	return l
}

// Ref adds a variable installed as $name.
func (l *Library) Ref(name string, v Value) *Library {
	if !l.has(name) {
		l.order = append(l.order, name)
	}
	delete(l.funcs, name)
	l.refs[name] = v
	return l
}

func (l *Library) has(name string) bool {
	_, f := l.funcs[name]
	_, r := l.refs[name]
	return f || r
}

// Names returns entry names in the order they were added.
func (l *Library) Names() []string {
	return append([]string(nil), l.order...)
}

// Spec returns the function entry called name.
func (l *Library) Spec(name string) (FuncSpec, bool) {
	spec, ok := l.funcs[name]
	return spec, ok
}

// AddToScope installs the named entries, and everything they include,
// into scope. With no names the whole library is installed.
func (l *Library) AddToScope(scope *Scope, names ...string) error {
	if len(names) == 0 {
		names = l.order
	}

	seen := make(map[string]bool)
	var want []string
	var visit func(name string) error
	visit = func(name string) error {
		if seen[name] {
			return nil
		}
		if !l.has(name) {
			return fmt.Errorf("library %s has no entry %q", l.Name, name)
		}
		seen[name] = true
		if spec, ok := l.funcs[name]; ok {
			for _, inc := range spec.Includes {
				if err := visit(inc); err != nil {
					return err
				}
			}
		}
		want = append(want, name)
		return nil
	}
	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}

	for _, name := range want {
		if v, ok := l.refs[name]; ok {
			scope.Set(name, v)
			continue
		}
		spec := l.funcs[name]
		meta := FuncMeta{Name: spec.Name, Library: l.Name, Help: spec.Help}
		if err := scope.AddFunc(spec.Patterns, spec.Impl, meta); err != nil {
			return fmt.Errorf("library %s: %w", l.Name, err)
		}
	}
	return nil
}
