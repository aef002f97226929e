package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

// FaultCode categorizes programming-error faults.
type FaultCode string

const (
	// FaultObserversMissing: dispatch or ingest before both observer
	// callbacks were registered.
	FaultObserversMissing FaultCode = "OBSERVERS_MISSING"

	// FaultStream: an ingestion stream returned an error. Ingestion stops.
	FaultStream FaultCode = "STREAM_FAILED"

	// FaultInvariant: an internal invariant broke (duplicate task id,
	// malformed message).
	FaultInvariant FaultCode = "INVARIANT_VIOLATED"
)

// Fault is a contract violation the engine cannot recover from.
//
// Faults are never returned to dispatch callers. They go to the store's
// FaultHandler, which by default logs them and halts unless the binary was
// built with the release tag.
type Fault struct {
	// Code identifies the fault category.
	Code FaultCode

	// Message is a human-readable description.
	Message string

	// TaskID identifies the background unit, when there is one.
	TaskID string

	// Err is the underlying error (stream faults).
	Err error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Code, f.Message)
	if f.TaskID != "" {
		msg += fmt.Sprintf(" (task=%s)", f.TaskID)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault reports whether err is a Fault with the given code.
// Uses errors.As to handle wrapped errors.
func IsFault(err error, code FaultCode) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code == code
	}
	return false
}

// FaultHandler receives faults. It may panic to halt execution.
type FaultHandler func(f *Fault)

// DefaultFaultHandler logs the fault at error level, then panics unless the
// binary was built with the release tag.
func DefaultFaultHandler(logger *slog.Logger) FaultHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(f *Fault) {
		logger.Error("engine fault",
			"code", f.Code,
			"message", f.Message,
			"task_id", f.TaskID,
			"error", f.Err,
		)
		if haltOnFault {
			panic(f)
		}
	}
}
