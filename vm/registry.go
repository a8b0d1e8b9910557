package vm

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Registry: token trie mapping signatures to function handles
// ---------------------------------------------------------------------------

// Impl is a function implementation. It may return any value; returning
// a *FuncResult makes the call awaitable.
type Impl func(call *Call) (Value, error)

// FuncMeta is optional descriptive data attached to a registered function.
type FuncMeta struct {
	Name    string // library entry name
	Library string
	Help    string
	Pattern string // the pattern the signature was expanded from
}

// FuncHandle is a registry entry: one concrete signature and what to run.
type FuncHandle struct {
	Signature string
	Vivify    []Vivify
	Def       *FuncDef
	Impl      Impl
	Meta      FuncMeta
}

// Arity returns the number of positional arguments the handle binds.
func (h *FuncHandle) Arity() int {
	return len(h.Vivify)
}

// Parameterize maps bound arguments onto the handle's named parameters.
func (h *FuncHandle) Parameterize(args []Value) map[string]Value {
	return h.Def.Parameterize(args)
}

type trieNode struct {
	children map[string]*trieNode
	handle   *FuncHandle
}

// Registry is a prefix trie keyed by signature tokens.
type Registry struct {
	root  trieNode
	count int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Insert stores h under its signature. A later insert of the same
// signature replaces the earlier handle.
func (r *Registry) Insert(h *FuncHandle) {
	n := &r.root
	for _, tok := range strings.Fields(h.Signature) {
		if n.children == nil {
			n.children = make(map[string]*trieNode)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &trieNode{}
			n.children[tok] = child
		}
		n = child
	}
	if n.handle == nil {
		r.count++
	}
	n.handle = h
}

// Find returns the handle registered under exactly sig, or nil.
func (r *Registry) Find(sig string) *FuncHandle {
	n := r.node(strings.Fields(sig))
	if n == nil {
		return nil
	}
	return n.handle
}

func (r *Registry) node(tokens []string) *trieNode {
	n := &r.root
	for _, tok := range tokens {
		n = n.children[tok]
		if n == nil {
			return nil
		}
	}
	return n
}

// Len returns the number of registered signatures.
func (r *Registry) Len() int {
	return r.count
}

// Walk calls fn for every handle in signature token order.
func (r *Registry) Walk(fn func(h *FuncHandle)) {
	walkNode(&r.root, fn)
}

func walkNode(n *trieNode, fn func(h *FuncHandle)) {
	if n.handle != nil {
		fn(n.handle)
	}
	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		walkNode(n.children[k], fn)
	}
}

// Complete returns the handles whose signatures start with the tokens of
// prefix. A trailing partial word is matched as a token prefix.
func (r *Registry) Complete(prefix string) []*FuncHandle {
	tokens := strings.Fields(prefix)
	partial := ""
	if len(tokens) > 0 && !strings.HasSuffix(prefix, " ") {
		partial = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	n := r.node(tokens)
	if n == nil {
		return nil
	}

	var out []*FuncHandle
	collect := func(h *FuncHandle) { out = append(out, h) }
	if partial == "" {
		walkNode(n, collect)
		return out
	}

	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		if strings.HasPrefix(k, partial) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		walkNode(n.children[k], collect)
	}
	return out
}
