package lib

import (
	"fmt"
	"math"

	"github.com/chazu/backtalker/vm"
)

func addControl(l *vm.Library) {
	l.Func(vm.FuncSpec{
		Name:     "when",
		Patterns: []string{"when $ :", "if $ :"},
		Help:     "when condition: run the indented block if condition is truthy.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			if !vm.Truthy(c.Arg(0)) {
				return nil, nil
			}
			return c.EvalBody()
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "unless",
		Patterns: []string{"unless $ :"},
		Help:     "unless condition: run the indented block if condition is not truthy.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			if vm.Truthy(c.Arg(0)) {
				return nil, nil
			}
			return c.EvalBody()
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "do",
		Patterns: []string{"do :"},
		Help:     "do: run the indented block in a new scope.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			return c.EvalBody()
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "repeat",
		Patterns: []string{"repeat $ <time|times> :"},
		Help:     "repeat n times: run the indented block n times, one iteration after another.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			n, err := c.Number(0)
			if err != nil {
				return nil, err
			}
			if n < 0 || n != math.Trunc(n) || n >= math.MaxInt {
				return nil, fmt.Errorf("cannot repeat %s times", vm.Format(n))
			}
			return loop(int(n), func(int) (*vm.FuncResult, error) {
				return c.EvalBody()
			})
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "for each",
		Patterns: []string{"for each $!! in $ :"},
		Help:     "for each $item in list: run the indented block once per element, with $item bound to it.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			r, err := c.Ref(0)
			if err != nil {
				return nil, err
			}
			var items []vm.Value
			switch seq := c.Arg(1).(type) {
			case *vm.List:
				items = append(items, seq.Items...)
			case string:
				for _, ch := range seq {
					items = append(items, string(ch))
				}
			default:
				return nil, fmt.Errorf("cannot iterate over %s", vm.TypeName(c.Arg(1)))
			}
			return loop(len(items), func(i int) (*vm.FuncResult, error) {
				scope := c.Scope.Child()
				scope.Set(r.Name, items[i])
				return c.EvalBodyIn(scope)
			})
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "define",
		Patterns: []string{"define $ :"},
		Help:     "define pattern: add a function with the given pattern whose implementation is the indented block. Named parameters become variables; yield runs the caller's block.",
		Impl:     define,
	})
}

// loop runs step for i in [0, n), starting each iteration only after the
// previous iteration's result is fulfilled. Iterations that finish
// synchronously run without nesting. The result holds the value of the
// last iteration.
func loop(n int, step func(i int) (*vm.FuncResult, error)) (vm.Value, error) {
	out := vm.NewFuncResult()
	var last vm.Value

	var run func(start int) error
	run = func(start int) error {
		for i := start; i < n; i++ {
			r, err := step(i)
			if err != nil {
				return err
			}
			if !r.Done() {
				next := i + 1
				return r.OnFulfill(func(v vm.Value) error {
					last = v
					return run(next)
				})
			}
			last, _ = r.Get()
		}
		return out.Fulfill(last)
	}

	if err := run(0); err != nil {
		return nil, err
	}
	return out, nil
}

// define registers a user function in the defining scope. Each call runs
// the body in a fresh child of the defining scope, with named parameters
// bound as variables. Variable handles are bound as-is, so writes to a
// $!! parameter reach the caller's variable.
func define(c *vm.Call) (vm.Value, error) {
	pattern, ok := c.Arg(0).(string)
	if !ok {
		return nil, fmt.Errorf("define needs a pattern string, got %s", vm.TypeName(c.Arg(0)))
	}
	defScope := c.Scope
	body := c.Body

	impl := func(call *vm.Call) (vm.Value, error) {
		scope := defScope.Child()
		for name, v := range call.Params {
			scope.Set(name, v)
		}
		if call.Body != nil {
			err := scope.AddFunc([]string{"yield"}, func(*vm.Call) (vm.Value, error) {
				return call.EvalBody()
			})
			if err != nil {
				return nil, err
			}
		}
		return call.Evaluator().Sub(scope).Eval(body)
	}

	meta := vm.FuncMeta{Name: pattern, Library: "user", Help: "User function " + pattern + "."}
	if err := defScope.AddFunc([]string{pattern}, impl, meta); err != nil {
		return nil, err
	}
	return nil, nil
}
