package session

import (
	"time"

	"github.com/drake/hostbridge/timer"
	"go.uber.org/zap"
)

// ScheduleOnce implements lua.TimerService.
func (s *Session) ScheduleOnce(d time.Duration, fire func()) (timer.Token, error) {
	tok, err := s.timer.ScheduleOnce(d, fire)
	if err != nil {
		s.logger.Warn("schedule failed", zap.Duration("delay", d), zap.Error(err))
		return 0, err
	}
	s.logger.Debug("timer scheduled", lfdToken(tok), zap.Duration("delay", d))
	return tok, nil
}

// ScheduleRepeating implements lua.TimerService.
func (s *Session) ScheduleRepeating(d time.Duration, fire func()) (timer.Token, error) {
	tok, err := s.timer.ScheduleRepeating(d, fire)
	if err != nil {
		s.logger.Warn("schedule failed", zap.Duration("interval", d), zap.Error(err))
		return 0, err
	}
	s.logger.Debug("timer scheduled", lfdToken(tok), zap.Duration("interval", d))
	return tok, nil
}

// CancelOnce implements lua.TimerService.
func (s *Session) CancelOnce(tok timer.Token) {
	s.timer.CancelOnce(tok)
}

// CancelRepeating implements lua.TimerService.
func (s *Session) CancelRepeating(tok timer.Token) {
	s.timer.CancelRepeating(tok)
}
