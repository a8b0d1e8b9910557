package vm

import (
	"fmt"

	"github.com/chazu/backtalker/compiler"
)

const (
	msgValueForVariable    = "value used in place of variable"
	msgUndefinedForDefined = "undefined variable used in place of defined variable"
)

// bindArgs checks each argument against its slot's vivification
// requirement, left to right, and returns the values the implementation
// receives. The first failing slot is reported.
func bindArgs(h *FuncHandle, args []Value, code compiler.Code) ([]Value, error) {
	if len(args) != len(h.Vivify) {
		return nil, &BindingError{
			Code:      code,
			Signature: h.Signature,
			Index:     len(args),
			Msg:       fmt.Sprintf("got %d arguments, want %d", len(args), len(h.Vivify)),
		}
	}

	bound := make([]Value, len(args))
	for i, req := range h.Vivify {
		ref, isRef := args[i].(*Ref)
		switch req {
		case VivifyAlways:
			if !isRef {
				return nil, &BindingError{Code: code, Signature: h.Signature, Index: i, Msg: msgValueForVariable}
			}
			bound[i] = ref
		case VivifyNever:
			if !isRef {
				bound[i] = args[i]
				continue
			}
			if !ref.Defined {
				return nil, &BindingError{Code: code, Signature: h.Signature, Index: i, Msg: msgUndefinedForDefined}
			}
			bound[i] = ref.Value
		case VivifyAuto:
			if isRef && ref.Defined {
				bound[i] = ref.Value
			} else {
				bound[i] = args[i]
			}
		}
	}
	return bound, nil
}
