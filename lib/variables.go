package lib

import (
	"github.com/chazu/backtalker/vm"
)

func addVariables(l *vm.Library) {
	l.Func(vm.FuncSpec{
		Name:     "set",
		Patterns: []string{"set $!! to $"},
		Help:     "set $var to value: assign value to $var, defining it in the current scope if needed.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			r, err := c.Ref(0)
			if err != nil {
				return nil, err
			}
			v := c.Arg(1)
			r.Set(v)
			return v, nil
		},
	})

	// The body runs in its own scope; the result is written through the
	// handle, so it lands in the caller's variable.
	l.Func(vm.FuncSpec{
		Name:     "set block",
		Patterns: []string{"set $!! to :"},
		Help:     "set $var to: evaluate the indented block and assign its last value to $var.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			r, err := c.Ref(0)
			if err != nil {
				return nil, err
			}
			body, err := c.EvalBody()
			if err != nil {
				return nil, err
			}
			out := vm.NewFuncResult()
			err = body.OnFulfill(func(v vm.Value) error {
				r.Set(v)
				return out.Fulfill(v)
			})
			return out, err
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "let",
		Patterns: []string{"let $!! be $"},
		Help:     "let $var be value: bind $var in the current scope, shadowing any outer $var.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			r, err := c.Ref(0)
			if err != nil {
				return nil, err
			}
			v := c.Arg(1)
			c.Scope.Set(r.Name, v)
			return v, nil
		},
	})
}
