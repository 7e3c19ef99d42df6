package timer

import (
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Token identifies a registration made with a Scheduler. The zero Token is
// never issued.
type Token uint64

// Scheduler is the host timer surface consumed by Handle. The two cancel
// calls are not interchangeable: each only recognizes tokens issued by its
// matching schedule call.
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fire func()) (Token, error)
	ScheduleRepeating(interval time.Duration, fire func()) (Token, error)
	CancelOnce(tok Token)
	CancelRepeating(tok Token)
}

// Event is sent when a timer expires. The receiver hands it back to
// Service.Dispatch on the goroutine that owns the callbacks.
type Event struct {
	Token     Token
	Repeating bool
}

// Service manages timed wake-ups with full lifecycle ownership.
// It owns: token generation, scheduling, repeating logic, cancellation.
// Uses fixed-interval semantics: repeating timers reschedule immediately on expiry.
type Service struct {
	events chan<- Event
	done   chan struct{}
	timers map[Token]*entry
	nextID Token
	closed bool
	mu     sync.Mutex
}

type entry struct {
	interval time.Duration // 0 = one-shot, >0 = repeating
	fire     func()
	cancel   func() bool // time.Timer.Stop
}

var _ Scheduler = (*Service)(nil)

// NewService creates a timer service that sends expiry events.
func NewService(events chan<- Event) *Service {
	return &Service{
		events: events,
		done:   make(chan struct{}),
		timers: make(map[Token]*entry),
	}
}

// ScheduleOnce registers fire to run once after delay.
func (s *Service) ScheduleOnce(delay time.Duration, fire func()) (Token, error) {
	return s.schedule(delay, 0, fire)
}

// ScheduleRepeating registers fire to run every interval until cancelled.
func (s *Service) ScheduleRepeating(interval time.Duration, fire func()) (Token, error) {
	if interval <= 0 {
		return 0, pkgerrors.WithMessagef(ErrHostScheduling, "non-positive interval %v", interval)
	}
	return s.schedule(interval, interval, fire)
}

func (s *Service) schedule(d, interval time.Duration, fire func()) (Token, error) {
	if fire == nil {
		return 0, pkgerrors.WithMessage(ErrHostScheduling, "nil fire callback")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSchedulerClosed
	}

	s.nextID++
	tok := s.nextID

	t := time.AfterFunc(d, func() {
		s.expire(tok)
	})

	s.timers[tok] = &entry{
		interval: interval,
		fire:     fire,
		cancel:   t.Stop,
	}

	return tok, nil
}

// expire runs on a runtime timer goroutine. It reschedules repeating timers
// and forwards the event; the callback itself runs in Dispatch.
func (s *Service) expire(tok Token) {
	s.mu.Lock()
	e, ok := s.timers[tok]
	if !ok {
		s.mu.Unlock()
		return // Cancelled before expiry
	}

	repeating := e.interval > 0
	if repeating {
		t := time.AfterFunc(e.interval, func() {
			s.expire(tok)
		})
		e.cancel = t.Stop
	}
	s.mu.Unlock()

	select {
	case s.events <- Event{Token: tok, Repeating: repeating}:
	case <-s.done:
	}
}

// Dispatch runs the callback for an expiry event. A token cancelled after
// its event was queued is skipped. One-shot registrations are released
// before the callback runs.
func (s *Service) Dispatch(ev Event) {
	s.mu.Lock()
	e, ok := s.timers[ev.Token]
	if !ok {
		s.mu.Unlock()
		return
	}
	if e.interval == 0 {
		delete(s.timers, ev.Token)
	}
	fire := e.fire
	s.mu.Unlock()

	fire()
}

// CancelOnce stops a one-shot timer. Repeating tokens are ignored.
func (s *Service) CancelOnce(tok Token) {
	s.cancel(tok, false)
}

// CancelRepeating stops a repeating timer. One-shot tokens are ignored.
func (s *Service) CancelRepeating(tok Token) {
	s.cancel(tok, true)
}

func (s *Service) cancel(tok Token, repeating bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[tok]
	if !ok || (e.interval > 0) != repeating {
		return
	}
	e.cancel()
	delete(s.timers, tok)
}

// CancelAll stops all timers and clears the map.
func (s *Service) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.timers {
		e.cancel()
	}
	s.timers = make(map[Token]*entry)
}

// Active returns the number of live registrations.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close cancels all timers and rejects further scheduling. Pending expiry
// goroutines blocked on the events channel are released.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, e := range s.timers {
		e.cancel()
	}
	s.timers = make(map[Token]*entry)
	s.mu.Unlock()

	close(s.done)
}
