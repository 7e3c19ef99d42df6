package timer

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrHostScheduling is wrapped by every failure of the host scheduler to
	// register a timer.
	ErrHostScheduling = errors.New("timer: host scheduling failed")

	// ErrContractViolation is wrapped by every caller misuse of a Handle.
	ErrContractViolation = errors.New("timer: contract violation")

	// ErrAlreadyArmed is returned when Start is called on an armed handle.
	ErrAlreadyArmed = pkgerrors.WithMessage(ErrContractViolation, "handle already armed")

	// ErrSchedulerClosed is returned by a Service after Close.
	ErrSchedulerClosed = pkgerrors.WithMessage(ErrHostScheduling, "scheduler closed")
)
