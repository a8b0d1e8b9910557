package lib

import (
	"fmt"

	"github.com/chazu/backtalker/vm"
)

func constant(v vm.Value) vm.Impl {
	return func(*vm.Call) (vm.Value, error) { return v, nil }
}

func addLogic(l *vm.Library) {
	l.Func(vm.FuncSpec{Name: "true", Patterns: []string{"true", "yes"}, Impl: constant(true), Help: "The boolean true."})
	l.Func(vm.FuncSpec{Name: "false", Patterns: []string{"false", "no"}, Impl: constant(false), Help: "The boolean false."})
	l.Func(vm.FuncSpec{Name: "nothing", Patterns: []string{"nothing"}, Impl: constant(nil), Help: "The empty value."})

	l.Func(vm.FuncSpec{
		Name:     "not",
		Patterns: []string{"not $"},
		Help:     "not value: true when value is not truthy.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			return !vm.Truthy(c.Arg(0)), nil
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "is",
		Patterns: []string{"$ is $"},
		Help:     "a is b: true when a and b are equal.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			return vm.Equal(c.Arg(0), c.Arg(1)), nil
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "compare",
		Patterns: []string{"$ is <less|greater>:dir than $"},
		Help:     "a is less than b / a is greater than b: compare two numbers or two strings.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			cmp, err := compare(c.Arg(0), c.Arg(1))
			if err != nil {
				return nil, err
			}
			if c.Param("dir") == float64(0) {
				return cmp < 0, nil
			}
			return cmp > 0, nil
		},
	})
}

func compare(a, b vm.Value) (int, error) {
	switch a := a.(type) {
	case float64:
		if b, ok := b.(float64); ok {
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			}
			return 0, nil
		}
	case string:
		if b, ok := b.(string); ok {
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", vm.TypeName(a), vm.TypeName(b))
}
