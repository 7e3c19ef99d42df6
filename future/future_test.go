package future

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu        sync.Mutex
	unhandled []uint64
	handled   []uint64
	extra     int
}

func (o *recordingObserver) UnhandledRejection(id uint64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unhandled = append(o.unhandled, id)
}

func (o *recordingObserver) RejectionHandled(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handled = append(o.handled, id)
}

func (o *recordingObserver) ExtraSettlement(id uint64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extra++
}

func TestWrapResolves(t *testing.T) {
	var got string
	f := Wrap(func(cb Callback[string]) {
		cb(nil, "hello")
	})
	f.Then(func(v string) { got = v }, func(err error) { t.Errorf("rejected: %v", err) })

	if f.State() != Resolved {
		t.Fatalf("state = %v", f.State())
	}
	if got != "hello" {
		t.Errorf("value = %q", got)
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done not closed after settlement")
	}
}

func TestWrapRejectsVerbatim(t *testing.T) {
	f := Wrap(func(cb Callback[string]) {
		cb(io.ErrUnexpectedEOF, "")
	})

	v, err := f.Result()
	if err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want the host error unchanged", err)
	}
	if v != "" {
		t.Errorf("value = %q on rejection", v)
	}
	if f.State() != Rejected {
		t.Errorf("state = %v", f.State())
	}
}

func TestWrapSettlesOnce(t *testing.T) {
	obs := &recordingObserver{}
	var resolves, rejects int

	f := Wrap(func(cb Callback[int]) {
		cb(nil, 1)
		cb(errors.New("late failure"), 0)
		cb(nil, 2)
	}, WithObserver(obs))
	f.Then(func(int) { resolves++ }, func(error) { rejects++ })

	v, err := f.Result()
	if err != nil || v != 1 {
		t.Fatalf("result = %v, %v; want first settlement", v, err)
	}
	if resolves != 1 || rejects != 0 {
		t.Errorf("resolves = %d rejects = %d", resolves, rejects)
	}
	if obs.extra != 2 {
		t.Errorf("extra settlements reported = %d, want 2", obs.extra)
	}
}

func TestWrapSettlesOnceConcurrently(t *testing.T) {
	var cb Callback[int]
	f := Wrap(func(c Callback[int]) { cb = c })

	var calls sync.WaitGroup
	var mu sync.Mutex
	seen := 0
	f.Then(func(int) {
		mu.Lock()
		seen++
		mu.Unlock()
	}, func(error) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	for i := 0; i < 32; i++ {
		calls.Add(1)
		go func(i int) {
			defer calls.Done()
			if i%2 == 0 {
				cb(nil, i)
			} else {
				cb(errors.New("fail"), 0)
			}
		}(i)
	}
	calls.Wait()

	if seen != 1 {
		t.Errorf("handlers ran %d times", seen)
	}
}

func TestWrapPanicRejects(t *testing.T) {
	f := Wrap(func(cb Callback[string]) {
		panic(io.EOF)
	})

	_, err := f.Result()
	var pe PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PanicError", err)
	}
	if !errors.Is(err, io.EOF) {
		t.Error("PanicError does not unwrap to the panic value")
	}
}

func TestWrapPanicStillReturnsFuture(t *testing.T) {
	obs := &recordingObserver{}
	f := Wrap(func(cb Callback[string]) {
		panic("host blew up")
	}, WithObserver(obs))

	if f == nil {
		t.Fatal("Wrap returned nil after the host call panicked")
	}
	if f.State() != Rejected {
		t.Fatalf("state = %v, want rejected", f.State())
	}

	var got error
	f.Then(func(string) { t.Error("resolved after panic") }, func(err error) { got = err })
	var pe PanicError
	if !errors.As(got, &pe) || pe.Value != "host blew up" {
		t.Errorf("rejection = %v, want PanicError", got)
	}
}

func TestWrapPanicAfterCompletion(t *testing.T) {
	obs := &recordingObserver{}
	f := Wrap(func(cb Callback[string]) {
		cb(nil, "ok")
		panic("late")
	}, WithObserver(obs))

	if v, err := f.Result(); err != nil || v != "ok" {
		t.Errorf("result = %q, %v; want first completion", v, err)
	}
	if obs.extra != 1 {
		t.Errorf("extra settlements = %d, want 1", obs.extra)
	}
}

func TestThenOrdering(t *testing.T) {
	var cb Callback[string]
	f := Wrap(func(c Callback[string]) { cb = c })

	var order []int
	f.Then(func(string) { order = append(order, 1) }, nil)
	f.Then(func(string) { order = append(order, 2) }, nil)
	if len(order) != 0 {
		t.Fatal("handlers ran before settlement")
	}

	cb(nil, "x")
	f.Then(func(string) { order = append(order, 3) }, nil)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v", order)
	}
}

func TestUnhandledRejectionTracking(t *testing.T) {
	obs := &recordingObserver{}

	handled := Wrap(func(cb Callback[string]) {}, WithObserver(obs))
	handled.Then(nil, func(error) {})

	var cb Callback[string]
	late := Wrap(func(c Callback[string]) { cb = c }, WithObserver(obs))
	cb(errors.New("boom"), "")

	if len(obs.unhandled) != 1 || obs.unhandled[0] != late.ID() {
		t.Fatalf("unhandled = %v, want [%d]", obs.unhandled, late.ID())
	}

	late.Then(nil, func(error) {})
	late.Then(nil, func(error) {})
	if len(obs.handled) != 1 || obs.handled[0] != late.ID() {
		t.Errorf("handled = %v, want [%d]", obs.handled, late.ID())
	}

	resolveOnly := Wrap(func(cb Callback[string]) { cb(errors.New("x"), "") }, WithObserver(obs))
	resolveOnly.Then(func(string) {}, nil)
	if len(obs.unhandled) != 2 {
		t.Errorf("resolve-only handler suppressed rejection report")
	}
}

func TestAwait(t *testing.T) {
	var cb Callback[string]
	f := Wrap(func(c Callback[string]) { cb = c })

	go func() {
		time.Sleep(5 * time.Millisecond)
		cb(nil, "done")
	}()

	v, err := f.Await(context.Background())
	if err != nil || v != "done" {
		t.Errorf("await = %q, %v", v, err)
	}
}

func TestAwaitContext(t *testing.T) {
	f := Wrap(func(c Callback[string]) {})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	if _, err := f.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
	if f.State() != Pending {
		t.Error("never-completed call settled")
	}
}

func TestIDsUnique(t *testing.T) {
	a := Wrap(func(Callback[int]) {})
	b := Wrap(func(Callback[int]) {})
	if a.ID() == b.ID() || a.ID() == 0 {
		t.Errorf("ids %d, %d", a.ID(), b.ID())
	}
}

func TestDeferredReportSkipsSynchronousRejection(t *testing.T) {
	obs := &recordingObserver{}
	var queue []func()
	post := func(fn func()) { queue = append(queue, fn) }

	// The host rejects before Wrap returns; the caller attaches a handler
	// before the loop runs the queued check.
	caught := Wrap(func(cb Callback[string]) {
		cb(errors.New("sync"), "")
	}, WithObserver(obs), WithDeferredReport(post))
	caught.Then(nil, func(error) {})

	ignored := Wrap(func(cb Callback[string]) {
		cb(errors.New("sync"), "")
	}, WithObserver(obs), WithDeferredReport(post))

	if len(obs.unhandled) != 0 {
		t.Fatalf("reported before the loop ran: %v", obs.unhandled)
	}
	for _, fn := range queue {
		fn()
	}

	if len(obs.unhandled) != 1 || obs.unhandled[0] != ignored.ID() {
		t.Errorf("unhandled = %v, want [%d]", obs.unhandled, ignored.ID())
	}
	if len(obs.handled) != 0 {
		t.Errorf("handled = %v, want none", obs.handled)
	}
}
