// Package debug provides runtime monitoring and diagnostics.
package debug

import (
	"context"
	"time"

	"github.com/drake/hostbridge/session"
	"go.uber.org/zap"
)

// StatsSource is implemented by *session.Session.
type StatsSource interface {
	Stats() session.Stats
}

// Monitor periodically logs session statistics.
type Monitor struct {
	source   StatsSource
	interval time.Duration
	logger   *zap.Logger
}

// NewMonitor creates a monitor for the given session. If enabled is false,
// returns nil.
func NewMonitor(source StatsSource, interval time.Duration, enabled bool, logger *zap.Logger) *Monitor {
	if !enabled {
		return nil
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		source:   source,
		interval: interval,
		logger:   logger.Named("debug"),
	}
}

// Start begins the monitoring loop in a goroutine. It stops with ctx.
func (m *Monitor) Start(ctx context.Context) {
	if m == nil {
		return
	}
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Debug("monitor started", zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("monitor stopped")
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logStats() {
	s := m.source.Stats()

	m.logger.Info("stats",
		zap.Uint64("events", s.EventsProcessed),
		zap.Int64("eventQueue", s.EventQueueLen),
		zap.Int("timerQueue", s.TimerQueueLen),
		zap.Int("timerQueueCap", s.TimerQueueCap),
		zap.Int("activeTimers", s.ActiveTimers),
		zap.Int64("inflightReads", s.InflightReads),
		zap.Int("goroutines", s.Goroutines),
		zap.Int("luaStack", s.Lua.StackSize),
		zap.Int("luaArmed", s.Lua.ArmedTimers),
		zap.Int("luaChunks", s.Lua.CachedChunk),
	)
}
