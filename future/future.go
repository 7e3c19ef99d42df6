// Package future adapts error-first callback completions into
// single-settlement futures.
package future

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the settlement state of a Future.
type State int32

const (
	Pending State = iota
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Callback is an error-first completion. A nil err means success.
type Callback[T any] func(err error, value T)

// Observer receives settlement diagnostics. Implementations must be safe for
// concurrent use.
type Observer interface {
	// UnhandledRejection is called when a future rejects with no rejection
	// handler attached.
	UnhandledRejection(id uint64, err error)
	// RejectionHandled is called when a handler is attached to a future
	// previously reported as unhandled.
	RejectionHandled(id uint64)
	// ExtraSettlement is called for every completion after the first.
	ExtraSettlement(id uint64, err error)
}

// Option configures a Future.
type Option func(*options)

type options struct {
	observer Observer
	post     func(func())
}

// WithObserver attaches an Observer to the future.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// WithDeferredReport delays the unhandled rejection check by handing it to
// post, typically the event loop's enqueue function. Handlers attached
// before post runs the check count as handling the rejection, so a host
// that completes synchronously is not reported.
func WithDeferredReport(post func(func())) Option {
	return func(opts *options) {
		opts.post = post
	}
}

// PanicError rejects a future whose host call panicked.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("future: host call panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

var lastID atomic.Uint64

type handler[T any] struct {
	onResolve func(T)
	onReject  func(error)
}

// Future holds a value or error that becomes available exactly once.
type Future[T any] struct {
	id       uint64
	observer Observer
	post     func(func())
	settled  atomic.Bool
	done     chan struct{}

	mu       sync.Mutex
	state    State
	value    T
	err      error
	handlers []handler[T]
	handled  bool
	reported bool
}

// Wrap issues call, handing it the completion callback of a new future.
// Only the first completion settles the future. A panic in call rejects the
// future with PanicError.
func Wrap[T any](call func(cb Callback[T]), opts ...Option) *Future[T] {
	f := newFuture[T](opts)
	f.issue(call)
	return f
}

// issue runs call, converting a panic into a rejection.
func (f *Future[T]) issue(call func(cb Callback[T])) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			f.complete(PanicError{Value: r}, zero)
		}
	}()
	call(f.complete)
}

func newFuture[T any](opts []Option) *Future[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Future[T]{
		id:       lastID.Add(1),
		observer: o.observer,
		post:     o.post,
		done:     make(chan struct{}),
	}
}

// complete is the callback handed to the host.
func (f *Future[T]) complete(err error, value T) {
	if !f.settled.CompareAndSwap(false, true) {
		if f.observer != nil {
			f.observer.ExtraSettlement(f.id, err)
		}
		return
	}

	f.mu.Lock()
	if err != nil {
		f.state = Rejected
		f.err = err
	} else {
		f.state = Resolved
		f.value = value
	}
	handlers := f.handlers
	f.handlers = nil
	check := err != nil && !f.handled && f.observer != nil
	f.mu.Unlock()

	close(f.done)

	if check {
		if f.post != nil {
			f.post(f.reportUnhandled)
		} else {
			f.reportUnhandled()
		}
	}
	for _, h := range handlers {
		f.run(h)
	}
}

// reportUnhandled tells the observer about a rejection that still has no
// handler.
func (f *Future[T]) reportUnhandled() {
	f.mu.Lock()
	if f.handled || f.reported {
		f.mu.Unlock()
		return
	}
	f.reported = true
	err := f.err
	f.mu.Unlock()

	f.observer.UnhandledRejection(f.id, err)
}

func (f *Future[T]) run(h handler[T]) {
	switch f.state {
	case Resolved:
		if h.onResolve != nil {
			h.onResolve(f.value)
		}
	case Rejected:
		if h.onReject != nil {
			h.onReject(f.err)
		}
	}
}

// Then registers settlement handlers. Either may be nil. Handlers run on the
// goroutine that settles the future, or immediately if it already settled.
// A non-nil onReject marks the rejection as handled.
func (f *Future[T]) Then(onResolve func(T), onReject func(error)) {
	h := handler[T]{onResolve: onResolve, onReject: onReject}

	f.mu.Lock()
	if f.state == Pending {
		if onReject != nil {
			f.handled = true
		}
		f.handlers = append(f.handlers, h)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	if onReject != nil {
		f.markHandled()
	}
	f.run(h)
}

// markHandled records that a rejection handler exists and reports a
// previously unhandled rejection as handled.
func (f *Future[T]) markHandled() {
	f.mu.Lock()
	wasReported := f.reported && !f.handled
	f.handled = true
	f.mu.Unlock()

	if wasReported {
		f.observer.RejectionHandled(f.id)
	}
}

// ID returns the process-unique identifier of the future.
func (f *Future[T]) ID() uint64 { return f.id }

// State returns the current settlement state.
func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result returns the settled value and error. Both are zero while pending.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Await blocks until the future settles or ctx is done. Awaiting counts as
// handling a rejection.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	f.markHandled()

	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
