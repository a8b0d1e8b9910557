// Package lib provides the BackTalker standard library.
package lib

import (
	"io"
	"os"
	"time"

	"github.com/chazu/backtalker/vm"
	"github.com/tliron/commonlog"
)

// Scheduler runs fn after d has elapsed. Implementations must call fn on
// the goroutine that owns the evaluator.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Options configures the standard library.
type Options struct {
	// Out receives print output. Defaults to os.Stdout.
	Out io.Writer

	// Scheduler backs asynchronous functions such as wait. Without one
	// those functions fail.
	Scheduler Scheduler

	// OnError receives errors raised by evaluations resumed from a
	// scheduler callback, where there is no caller to return them to.
	OnError func(error)
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o Options) reportError(err error) {
	if err == nil {
		return
	}
	if o.OnError != nil {
		o.OnError(err)
		return
	}
	commonlog.GetLogger("backtalker.lib").Errorf("%s", err)
}

// Core builds the standard library.
func Core(opts Options) *vm.Library {
	l := vm.NewLibrary("core")
	addVariables(l)
	addLogic(l)
	addLists(l)
	addControl(l)
	addIO(l, opts)
	addTime(l, opts)
	return l
}

// Install adds the whole standard library to scope.
func Install(scope *vm.Scope, opts Options) error {
	return Core(opts).AddToScope(scope)
}
