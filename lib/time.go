package lib

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chazu/backtalker/vm"
)

// ErrNoScheduler is returned by asynchronous functions when the library
// was built without a Scheduler.
var ErrNoScheduler = errors.New("no scheduler configured")

var waitUnits = []time.Duration{time.Millisecond, time.Millisecond, time.Second, time.Second}

func addTime(l *vm.Library, opts Options) {
	l.Func(vm.FuncSpec{
		Name:     "wait",
		Patterns: []string{"wait $ <millisecond|milliseconds|second|seconds>:unit"},
		Help:     "wait n seconds: pause the running script without blocking others.",
		Impl: func(c *vm.Call) (vm.Value, error) {
			n, err := c.Number(0)
			if err != nil {
				return nil, err
			}
			unit := waitUnits[int(c.Param("unit").(float64))]
			// Durations past MaxInt64 nanoseconds would wrap negative.
			if n < 0 || math.IsNaN(n) || n >= math.MaxInt64/float64(unit) {
				return nil, fmt.Errorf("cannot wait %s", vm.Format(n))
			}
			if opts.Scheduler == nil {
				return nil, ErrNoScheduler
			}
			d := time.Duration(n * float64(unit))

			r := vm.NewFuncResult()
			opts.Scheduler.After(d, func() {
				opts.reportError(r.Fulfill(nil))
			})
			return r, nil
		},
	})
}
