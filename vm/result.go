package vm

import (
	"errors"
)

// ---------------------------------------------------------------------------
// FuncResult: single-assignment future
// ---------------------------------------------------------------------------

var (
	// ErrUnset is returned by Get on a result that has no value yet.
	ErrUnset = errors.New("result is not yet fulfilled")

	// ErrAlreadyFulfilled is returned by a second Fulfill.
	ErrAlreadyFulfilled = errors.New("result is already fulfilled")
)

// FuncResult is the value every awaitable call produces. It moves from
// unset to fulfilled exactly once. Continuations registered before
// fulfillment run once, in registration order, inside Fulfill.
type FuncResult struct {
	fulfilled bool
	value     Value
	conts     []func(Value) error
}

// NewFuncResult returns an unset result.
func NewFuncResult() *FuncResult {
	return &FuncResult{}
}

// Resolved returns a result already fulfilled with v.
func Resolved(v Value) *FuncResult {
	return &FuncResult{fulfilled: true, value: v}
}

// Done reports whether the result has been fulfilled.
func (r *FuncResult) Done() bool {
	return r.fulfilled
}

// Get returns the fulfilled value, or ErrUnset.
func (r *FuncResult) Get() (Value, error) {
	if !r.fulfilled {
		return nil, ErrUnset
	}
	return r.value, nil
}

// Fulfill sets the value and runs every pending continuation. Errors
// raised by continuations (for example a resumed VM failing) are joined
// and returned to the caller that fulfilled the result.
func (r *FuncResult) Fulfill(v Value) error {
	if r.fulfilled {
		return ErrAlreadyFulfilled
	}
	r.fulfilled = true
	r.value = v

	conts := r.conts
	r.conts = nil

	var errs []error
	for _, fn := range conts {
		if err := fn(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnFulfill registers fn to run with the value. If the result is already
// fulfilled fn runs immediately and its error is returned.
func (r *FuncResult) OnFulfill(fn func(Value) error) error {
	if r.fulfilled {
		return fn(r.value)
	}
	r.conts = append(r.conts, fn)
	return nil
}

// Then registers a continuation that cannot fail.
func (r *FuncResult) Then(fn func(Value)) {
	_ = r.OnFulfill(func(v Value) error {
		fn(v)
		return nil
	})
}

// Pending returns the number of continuations waiting on r.
func (r *FuncResult) Pending() int {
	return len(r.conts)
}
