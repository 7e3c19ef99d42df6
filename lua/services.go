package lua

import (
	"github.com/drake/hostbridge/file"
	"github.com/drake/hostbridge/timer"
)

// TimerService handles scheduling. Fire callbacks must be delivered on the
// goroutine that drives the Engine.
type TimerService = timer.Scheduler

// FileService handles asynchronous reads. Completions must be delivered on
// the goroutine that drives the Engine.
type FileService = file.Reader

// SystemService handles output and app lifecycle.
type SystemService interface {
	Print(text string)
	Quit()
}
