package session

import (
	"runtime"

	"github.com/drake/hostbridge/lua"
)

// Stats is a point-in-time view of session activity.
type Stats struct {
	EventsProcessed uint64
	EventQueueLen   int64
	TimerQueueLen   int
	TimerQueueCap   int
	ActiveTimers    int
	InflightReads   int64
	Goroutines      int
	Lua             lua.Stats
}

// Stats returns current statistics. It is safe to call from any goroutine;
// the Lua figures are as of the last loop iteration.
func (s *Session) Stats() Stats {
	st := Stats{
		EventsProcessed: s.processed.Load(),
		EventQueueLen:   s.queued.Load(),
		TimerQueueLen:   len(s.timerEvents),
		TimerQueueCap:   cap(s.timerEvents),
		ActiveTimers:    s.timer.Active(),
		InflightReads:   s.inflight.Load(),
		Goroutines:      runtime.NumGoroutine(),
	}
	if ls := s.luaStats.Load(); ls != nil {
		st.Lua = *ls
	}
	return st
}
