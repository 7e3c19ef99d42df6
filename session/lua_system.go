package session

import (
	"fmt"

	"github.com/drake/hostbridge/event"
	"go.uber.org/zap"
)

// Print implements lua.SystemService.
func (s *Session) Print(text string) {
	if _, err := fmt.Fprintln(s.out, text); err != nil {
		s.logger.Warn("print failed", zap.Error(err))
	}
}

// Quit implements lua.SystemService. It is safe to call from any goroutine.
func (s *Session) Quit() {
	s.post(event.Event{
		Type:    event.SystemControl,
		Control: event.ControlOp{Action: event.ActionQuit},
	})
}

// Load enqueues a request to load a Lua script on the session loop.
// It is safe to call from any goroutine.
func (s *Session) Load(path string) {
	s.post(event.Event{
		Type: event.SystemControl,
		Control: event.ControlOp{
			Action:     event.ActionLoadScript,
			ScriptPath: path,
		},
	})
}

// loadScript loads a Lua script file. Runs on the session goroutine.
func (s *Session) loadScript(path string) {
	if path == "" {
		s.logger.Warn("load failed: empty path")
		return
	}

	if err := s.engine.DoFile(path); err != nil {
		s.logger.Error("load failed", lfdScript(path), zap.Error(err))
		return
	}

	s.logger.Info("script loaded", lfdScript(path))
}
