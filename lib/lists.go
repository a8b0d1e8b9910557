package lib

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/chazu/backtalker/vm"
)

func addLists(l *vm.Library) {
	l.Func(vm.FuncSpec{
		Name:     "new list",
		Patterns: []string{"new list"},
		Help:     "new list: an empty list.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			return vm.NewList(), nil
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "add",
		Patterns: []string{"add $ to $"},
		Help:     "add value to list: append value to the end of list.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			list, ok := c.Arg(1).(*vm.List)
			if !ok {
				return nil, fmt.Errorf("cannot add to %s", vm.TypeName(c.Arg(1)))
			}
			list.Items = append(list.Items, c.Arg(0))
			return list, nil
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "item",
		Patterns: []string{"item $ of $"},
		Help:     "item n of list: the nth element (counting from 1) of a list or string.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			n, err := c.Number(0)
			if err != nil {
				return nil, err
			}
			switch seq := c.Arg(1).(type) {
			case *vm.List:
				i, err := index(n, len(seq.Items))
				if err != nil {
					return nil, err
				}
				return seq.Items[i], nil
			case string:
				runes := []rune(seq)
				i, err := index(n, len(runes))
				if err != nil {
					return nil, err
				}
				return string(runes[i]), nil
			}
			return nil, fmt.Errorf("cannot index %s", vm.TypeName(c.Arg(1)))
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "length",
		Patterns: []string{"length of $"},
		Help:     "length of x: the number of elements of a list or characters of a string.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			switch seq := c.Arg(0).(type) {
			case *vm.List:
				return float64(len(seq.Items)), nil
			case string:
				return float64(utf8.RuneCountInString(seq)), nil
			}
			return nil, fmt.Errorf("%s has no length", vm.TypeName(c.Arg(0)))
		},
	})
}

// index converts a 1-based position into a slice index.
func index(n float64, length int) (int, error) {
	if n != math.Trunc(n) || n < 1 || n > float64(length) {
		return 0, fmt.Errorf("index %s out of range 1..%d", vm.Format(n), length)
	}
	return int(n) - 1, nil
}
