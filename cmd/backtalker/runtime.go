package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/backtalker/lib"
	"github.com/chazu/backtalker/server"
	"github.com/chazu/backtalker/vm"
)

// runtime is a single interpreter for the command line. Every evaluation
// and every timer callback runs on its worker.
type runtime struct {
	worker   *server.Worker
	scope    *vm.Scope
	ev       *vm.Evaluator
	waiting  chan error // set while run blocks; worker-owned

	// unclaimed receives resumed-run errors that no run call is
	// waiting for.
	unclaimed func(error)
}

func newRuntime(out io.Writer) (*runtime, error) {
	rt := &runtime{
		worker: server.NewWorker(),
		scope:  vm.NewScope(nil),
	}
	opts := lib.Options{
		Out:       out,
		Scheduler: rt.worker,
		OnError:   rt.report,
	}
	if err := lib.Install(rt.scope, opts); err != nil {
		rt.worker.Stop()
		return nil, err
	}
	rt.ev = vm.NewEvaluator(rt.scope, vm.WithChunk("<input>"))
	return rt, nil
}

// report hands an error from a resumed run to the blocked run call, if
// any. It is called on the worker.
func (rt *runtime) report(err error) {
	switch {
	case rt.waiting != nil:
		select {
		case rt.waiting <- err:
		default:
			cliLog().Errorf("%s", err)
		}
	case rt.unclaimed != nil:
		rt.unclaimed(err)
	default:
		cliLog().Errorf("%s", err)
	}
}

func (rt *runtime) stop() {
	rt.worker.Stop()
}

// eval starts source on the worker and returns its result, which may
// still be pending.
func (rt *runtime) eval(source, chunk string) (*vm.FuncResult, error) {
	v, err := rt.worker.Do(func() (any, error) {
		return rt.ev.EvalChunk(source, chunk)
	})
	if err != nil {
		return nil, err
	}
	return v.(*vm.FuncResult), nil
}

// run evaluates source and blocks until it has finished, including any
// waits it suspended on.
func (rt *runtime) run(source, chunk string) (vm.Value, error) {
	done := make(chan vm.Value, 1)
	failed := make(chan error, 1)
	_, err := rt.worker.Do(func() (any, error) {
		r, err := rt.ev.EvalChunk(source, chunk)
		if err != nil {
			return nil, err
		}
		rt.waiting = failed
		r.Then(func(v vm.Value) { done <- v })
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	defer rt.worker.Post(func() { rt.waiting = nil })

	select {
	case v := <-done:
		return v, nil
	case err := <-failed:
		return nil, err
	}
}

// runFile evaluates the script at path to completion.
func (rt *runtime) runFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := rt.run(string(src), path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// parked snapshots the machines suspended on pending results.
func (rt *runtime) parked() []*vm.State {
	v, err := rt.worker.Do(func() (any, error) {
		var states []*vm.State
		for _, m := range rt.ev.Parked() {
			states = append(states, m.State())
		}
		return states, nil
	})
	if err != nil {
		return nil
	}
	return v.([]*vm.State)
}

// signatures lists the functions whose signature starts with prefix.
func (rt *runtime) signatures(prefix string) []*vm.FuncHandle {
	v, err := rt.worker.Do(func() (any, error) {
		if prefix == "" {
			return rt.scope.Signatures(), nil
		}
		return rt.scope.Complete(prefix), nil
	})
	if err != nil {
		return nil
	}
	return v.([]*vm.FuncHandle)
}

// variables returns the top-level variables and their display values.
func (rt *runtime) variables() [][2]string {
	v, err := rt.worker.Do(func() (any, error) {
		var vars [][2]string
		for _, name := range rt.scope.Locals() {
			val, _ := rt.scope.Get(name)
			vars = append(vars, [2]string{name, vm.Format(val)})
		}
		return vars, nil
	})
	if err != nil {
		return nil
	}
	return v.([][2]string)
}
