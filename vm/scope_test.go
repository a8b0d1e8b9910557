package vm

import (
	"errors"
	"testing"
)

func noop(c *Call) (Value, error) { return nil, nil }

func TestScopeGetFallsThroughToParent(t *testing.T) {
	parent := NewScope(nil)
	parent.Set("x", 1.0)
	child := parent.Child()

	v, ok := child.Get("x")
	if !ok || v != 1.0 {
		t.Errorf("child.Get(x) = %v, %v, want 1, true", v, ok)
	}
	if _, ok := child.Get("missing"); ok {
		t.Error("child.Get(missing) found a value")
	}
}

func TestScopeSetIsLocal(t *testing.T) {
	parent := NewScope(nil)
	parent.Set("x", 1.0)
	child := parent.Child()

	child.Set("x", 2.0)
	child.Set("y", 3.0)

	if v, _ := parent.Get("x"); v != 1.0 {
		t.Errorf("parent x = %v after child.Set, want 1", v)
	}
	if _, ok := parent.Get("y"); ok {
		t.Error("child.Set(y) leaked into parent")
	}
	if v, _ := child.Get("x"); v != 2.0 {
		t.Errorf("child x = %v, want 2", v)
	}
}

func TestScopeLookupReportsOwner(t *testing.T) {
	root := NewScope(nil)
	root.Set("x", "root")
	mid := root.Child()
	leaf := mid.Child()

	_, owner, ok := leaf.Lookup("x")
	if !ok || owner != root {
		t.Errorf("Lookup(x) owner = %p, want root %p", owner, root)
	}
	if leaf.Root() != root || leaf.Parent() != mid {
		t.Error("Root/Parent do not walk the chain")
	}
}

func TestScopeHandle(t *testing.T) {
	root := NewScope(nil)
	root.Set("x", 5.0)
	child := root.Child()

	h := child.Handle("x")
	if !h.Defined || h.Value != 5.0 || h.Owner != root {
		t.Errorf("Handle(x) = %+v, want defined 5 owned by root", h)
	}

	u := child.Handle("u")
	if u.Defined || u.Owner != child {
		t.Errorf("Handle(u) = %+v, want undefined owned by child", u)
	}
	u.Set(7.0)
	if !child.HasLocal("u") || root.HasLocal("u") {
		t.Error("undefined handle did not vivify in the calling scope")
	}

	h.Set(6.0)
	if v, _ := root.Get("x"); v != 6.0 {
		t.Errorf("root x = %v after handle write, want 6", v)
	}
	if child.HasLocal("x") {
		t.Error("handle write created a local shadow")
	}
}

func TestScopeFindFuncDelegates(t *testing.T) {
	root := NewScope(nil)
	if err := root.AddFunc([]string{"bake <cake|pie>"}, noop); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	child := root.Child()
	if err := child.AddFunc([]string{"fry $"}, noop); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}

	if child.FindFunc("bake pie") == nil {
		t.Error("child did not find parent's bake pie")
	}
	if root.FindFunc("fry $") != nil {
		t.Error("root found child's fry $")
	}
	if child.FindFunc("bake waffle") != nil {
		t.Error("found a signature that was never registered")
	}
	if child.FindFunc("bake") != nil {
		t.Error("a signature prefix matched")
	}
}

func TestAddFuncChecksAllPatternsFirst(t *testing.T) {
	s := NewScope(nil)
	err := s.AddFunc([]string{"good $", "bad <a|<b>>"}, noop)
	var de *DefinitionError
	if !errors.As(err, &de) {
		t.Fatalf("AddFunc error = %v, want DefinitionError", err)
	}
	if s.FindFunc("good $") != nil {
		t.Error("a pattern was registered despite a definition error")
	}
}

func TestAddFuncMeta(t *testing.T) {
	s := NewScope(nil)
	if err := s.AddFunc([]string{"greet $"}, noop, FuncMeta{Name: "greet", Help: "Says hello."}); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	h := s.FindFunc("greet $")
	if h.Meta.Help != "Says hello." || h.Meta.Pattern != "greet $" {
		t.Errorf("meta = %+v", h.Meta)
	}
}

func TestScopeSignaturesShadowing(t *testing.T) {
	root := NewScope(nil)
	root.AddFunc([]string{"a", "b"}, noop, FuncMeta{Name: "root"})
	child := root.Child()
	child.AddFunc([]string{"b", "c"}, noop, FuncMeta{Name: "child"})

	sigs := child.Signatures()
	if len(sigs) != 3 {
		t.Fatalf("got %d signatures, want 3", len(sigs))
	}
	want := []struct{ sig, owner string }{{"a", "root"}, {"b", "child"}, {"c", "child"}}
	for i, w := range want {
		if sigs[i].Signature != w.sig || sigs[i].Meta.Name != w.owner {
			t.Errorf("sigs[%d] = %s from %s, want %s from %s", i, sigs[i].Signature, sigs[i].Meta.Name, w.sig, w.owner)
		}
	}
}

func TestRegistryComplete(t *testing.T) {
	r := NewRegistry()
	for _, sig := range []string{"print $", "item $ of $", "if $ :", "item $ from $"} {
		r.Insert(&FuncHandle{Signature: sig})
	}
	if r.Len() != 4 {
		t.Errorf("Len = %d, want 4", r.Len())
	}
	r.Insert(&FuncHandle{Signature: "print $"})
	if r.Len() != 4 {
		t.Errorf("Len = %d after replacing, want 4", r.Len())
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{"it", []string{"item $ from $", "item $ of $"}},
		{"item $ ", []string{"item $ from $", "item $ of $"}},
		{"item $ o", []string{"item $ of $"}},
		{"i", []string{"if $ :", "item $ from $", "item $ of $"}},
		{"zzz", nil},
	}
	for _, tc := range tests {
		var got []string
		for _, h := range r.Complete(tc.prefix) {
			got = append(got, h.Signature)
		}
		if len(got) != len(tc.want) {
			t.Errorf("Complete(%q) = %v, want %v", tc.prefix, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("Complete(%q) = %v, want %v", tc.prefix, got, tc.want)
				break
			}
		}
	}
}
