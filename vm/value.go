package vm

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/chazu/backtalker/compiler"
)

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// Value is any BackTalker runtime value: float64, string, bool, nil,
// *List, *FuncResult, or a host value supplied by a library.
type Value = any

// List is a mutable ordered collection.
type List struct {
	Items []Value
}

// NewList returns a list holding items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Ref is a handle to a variable, produced when a bare $reference is
// passed as a call argument. Owner is the scope holding the binding, or
// the calling scope when the variable is not yet defined.
type Ref struct {
	Name    string
	Defined bool
	Value   Value
	Owner   *Scope
}

// Set writes v through the handle into its owning scope. When the
// variable itself holds a handle (a by-reference parameter) the write
// goes through to the original variable.
func (r *Ref) Set(v Value) {
	if r.Owner == nil {
		return
	}
	if cur, ok := r.Owner.vars[r.Name]; ok {
		if inner, isRef := cur.(*Ref); isRef && inner != r {
			inner.Set(v)
			r.Defined = true
			r.Value = v
			return
		}
	}
	r.Owner.Set(r.Name, v)
	r.Defined = true
	r.Value = v
}

// current re-reads the variable the handle names, following a chain of
// by-reference bindings to the original variable.
func (r *Ref) current() *Ref {
	cur := r
	for depth := 0; depth < maxRefChain; depth++ {
		v, owner, ok := cur.Owner.Lookup(cur.Name)
		if !ok {
			return &Ref{Name: cur.Name, Owner: cur.Owner}
		}
		inner, isRef := v.(*Ref)
		if !isRef {
			return &Ref{Name: cur.Name, Defined: true, Value: v, Owner: owner}
		}
		cur = inner
	}
	return &Ref{Name: cur.Name, Owner: cur.Owner}
}

const maxRefChain = 64

func (r *Ref) String() string {
	if r.Defined {
		return fmt.Sprintf("$%s=%s", r.Name, Format(r.Value))
	}
	return fmt.Sprintf("$%s (undefined)", r.Name)
}

// Truthy reports whether v counts as true in conditions.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case *List:
		return len(v.Items) > 0
	case *Ref:
		return v.Defined && Truthy(v.Value)
	}
	return true
}

// Equal compares two values structurally.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case *List:
		bl, ok := b.(*List)
		if !ok || len(a.Items) != len(bl.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], bl.Items[i]) {
				return false
			}
		}
		return true
	case float64, string, bool, nil:
		return a == b
	}
	if a == nil || b == nil {
		return false
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// Format renders v for display.
func Format(v Value) string {
	switch v := v.(type) {
	case nil:
		return "nothing"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case *List:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			if s, ok := item.(string); ok {
				parts[i] = strconv.Quote(s)
			} else {
				parts[i] = Format(item)
			}
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *FuncResult:
		if v.Done() {
			return Format(v.value)
		}
		return "<pending>"
	case *Ref:
		return v.String()
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", v)
}

// TypeName names the runtime type of v for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *List:
		return "list"
	case *FuncResult:
		return "result"
	case *Ref:
		return "variable"
	}
	return fmt.Sprintf("%T", v)
}

// ---------------------------------------------------------------------------
// Arithmetic and logic
// ---------------------------------------------------------------------------

func binary(op compiler.Opcode, a, b Value) (Value, error) {
	switch op {
	case compiler.OpAdd:
		if x, y, ok := numbers(a, b); ok {
			return x + y, nil
		}
		_, as := a.(string)
		_, bs := b.(string)
		if as || bs {
			return Format(a) + Format(b), nil
		}
		return nil, operandError(op, a, b)
	case compiler.OpSub, compiler.OpMul, compiler.OpDiv:
		x, y, ok := numbers(a, b)
		if !ok {
			return nil, operandError(op, a, b)
		}
		switch op {
		case compiler.OpSub:
			return x - y, nil
		case compiler.OpMul:
			return x * y, nil
		}
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return x / y, nil
	case compiler.OpAnd:
		if !Truthy(a) {
			return a, nil
		}
		return b, nil
	case compiler.OpOr:
		if Truthy(a) {
			return a, nil
		}
		return b, nil
	case compiler.OpNot:
		return Truthy(a) && !Truthy(b), nil
	}
	return nil, fmt.Errorf("%s is not a binary operator", op)
}

func numbers(a, b Value) (float64, float64, bool) {
	x, ok1 := a.(float64)
	y, ok2 := b.(float64)
	return x, y, ok1 && ok2
}

func operandError(op compiler.Opcode, a, b Value) error {
	return fmt.Errorf("cannot apply %s to %s and %s", op, TypeName(a), TypeName(b))
}
