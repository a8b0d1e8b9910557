package lib

import (
	"fmt"
	"strings"

	"github.com/chazu/backtalker/vm"
)

func addIO(l *vm.Library, opts Options) {
	l.Func(vm.FuncSpec{
		Name:     "print",
		Patterns: []string{"print $"},
		Help:     "print value: write value followed by a newline.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			_, err := fmt.Fprintln(opts.out(), vm.Format(c.Arg(0)))
			return nil, err
		},
	})

	l.Func(vm.FuncSpec{
		Name:     "help",
		Patterns: []string{"help $"},
		Help:     "help topic: describe the functions whose signature or name starts with topic.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			topic, ok := c.Arg(0).(string)
			if !ok {
				return nil, fmt.Errorf("help needs a string, got %s", vm.TypeName(c.Arg(0)))
			}
			return describe(c.Scope, topic), nil
		},
	})
}

func describe(scope *vm.Scope, topic string) string {
	if h := scope.FindFunc(topic); h != nil {
		return h.Signature + "\n  " + h.Meta.Help
	}

	var b strings.Builder
	seen := make(map[string]bool)
	for _, h := range scope.Signatures() {
		if !strings.HasPrefix(h.Signature, topic) && !strings.HasPrefix(h.Meta.Name, topic) {
			continue
		}
		fmt.Fprintf(&b, "%s\n", h.Signature)
		key := h.Meta.Library + "/" + h.Meta.Name
		if h.Meta.Help != "" && !seen[key] {
			seen[key] = true
			fmt.Fprintf(&b, "  %s\n", h.Meta.Help)
		}
	}
	if b.Len() == 0 {
		return "no help for " + topic
	}
	return strings.TrimRight(b.String(), "\n")
}
