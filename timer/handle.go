package timer

import (
	"math"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Mode selects which host primitive backs an armed Handle.
type Mode int

const (
	OneShot Mode = iota
	Repeating
)

func (m Mode) String() string {
	switch m {
	case OneShot:
		return "once"
	case Repeating:
		return "repeat"
	}
	return "unknown"
}

// maxDelayMs is the largest delay the host accepts; anything outside
// [1, maxDelayMs] is treated as 1ms.
const maxDelayMs = 1<<31 - 1

// armed is the state of a Handle with a live host registration.
type armed struct {
	mode     Mode
	token    Token
	interval time.Duration
	fired    bool
}

// Handle owns at most one host timer registration. A nil state means the
// handle is unarmed. A Handle is not safe for concurrent use; it is meant
// to be driven from the event loop that also runs its callbacks.
type Handle struct {
	sched Scheduler
	state *armed
}

// NewHandle returns an unarmed handle bound to s.
func NewHandle(s Scheduler) *Handle {
	return &Handle{sched: s}
}

// Start arms the handle. A non-zero repeat arms a repeating timer with
// repeat as the interval and ignores durationMs; a zero repeat arms a
// one-shot timer after durationMs. Starting an armed handle returns
// ErrAlreadyArmed and leaves the existing registration in place.
//
// onFire must not be invoked synchronously by the scheduler.
func (h *Handle) Start(durationMs, repeat float64, onFire func()) error {
	if h == nil || h.sched == nil {
		return pkgerrors.WithMessage(ErrContractViolation, "unbound handle")
	}
	if onFire == nil {
		return pkgerrors.WithMessage(ErrContractViolation, "nil callback")
	}
	if h.state != nil {
		return ErrAlreadyArmed
	}

	if repeat != 0 {
		a := &armed{mode: Repeating, interval: clampDelay(repeat)}
		tok, err := h.sched.ScheduleRepeating(a.interval, onFire)
		if err != nil {
			return err
		}
		a.token = tok
		h.state = a
		return nil
	}

	a := &armed{mode: OneShot, interval: clampDelay(durationMs)}
	tok, err := h.sched.ScheduleOnce(a.interval, func() {
		// The host token is spent once a one-shot fires.
		a.fired = true
		if h.state == a {
			h.state = nil
		}
		onFire()
	})
	if err != nil {
		return err
	}
	a.token = tok
	if !a.fired {
		h.state = a
	}
	return nil
}

// Stop cancels the registration, if any. It is safe to call repeatedly.
func (h *Handle) Stop() {
	if h == nil || h.state == nil {
		return
	}
	a := h.state
	h.state = nil

	switch a.mode {
	case Repeating:
		h.sched.CancelRepeating(a.token)
	case OneShot:
		h.sched.CancelOnce(a.token)
	}
}

// Armed reports whether the handle holds a live registration.
func (h *Handle) Armed() bool {
	return h != nil && h.state != nil
}

// Mode returns the mode of an armed handle.
func (h *Handle) Mode() (Mode, bool) {
	if !h.Armed() {
		return 0, false
	}
	return h.state.mode, true
}

// Interval returns the effective delay of an armed handle, or 0.
func (h *Handle) Interval() time.Duration {
	if !h.Armed() {
		return 0
	}
	return h.state.interval
}

func clampDelay(ms float64) time.Duration {
	if math.IsNaN(ms) || ms < 1 || ms > maxDelayMs {
		ms = 1
	}
	return time.Duration(ms * float64(time.Millisecond))
}
