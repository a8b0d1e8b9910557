package server

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("worker stopped")

// workRequest is a unit of work to run on the worker goroutine. done is nil
// for posted work nobody waits on.
type workRequest struct {
	fn   func() (any, error)
	done chan workResult
}

type workResult struct {
	value any
	err   error
}

// Worker serializes all interpreter access through a single goroutine.
// Scopes, evaluators and FuncResults are not safe for concurrent use, so
// every RPC handler, LSP request and timer callback goes through Do, Post
// or After.
type Worker struct {
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			result := w.execute(req.fn)
			if req.done != nil {
				req.done <- result
			} else if result.err != nil {
				serverLog().Errorf("posted work failed: %s", result.err)
			}
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *Worker) execute(fn func() (any, error)) (result workResult) {
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("panic: %v", r)
		}
	}()
	result.value, result.err = fn()
	return result
}

// Do runs fn on the worker goroutine and blocks until it completes.
// Panics in fn are returned as errors. Do must not be called from the
// worker goroutine itself.
func (w *Worker) Do(fn func() (any, error)) (any, error) {
	req := workRequest{fn: fn, done: make(chan workResult, 1)}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Post queues fn without waiting for it. Work posted after Stop is dropped.
func (w *Worker) Post(fn func()) {
	req := workRequest{fn: func() (any, error) {
		fn()
		return nil, nil
	}}
	select {
	case w.requests <- req:
	case <-w.quit:
	}
}

// After posts fn to the worker once d has elapsed. It satisfies
// lib.Scheduler, so script timers resume on the worker goroutine.
func (w *Worker) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { w.Post(fn) })
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
