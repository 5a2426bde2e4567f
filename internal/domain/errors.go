// Package domain contains domain errors used throughout the application.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrTransportUnavailable means the socket or child process could not be
	// opened. Fatal to startup.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrChildProcessExited means the PTY-backed server process terminated.
	ErrChildProcessExited = errors.New("child process exited")
	// ErrConfiguration means required configuration (log file, executable) is missing or invalid.
	ErrConfiguration = errors.New("configuration error")
	// ErrCommandTimeout means a console command did not complete before its deadline.
	ErrCommandTimeout = errors.New("command timed out")

	ErrInterfaceClosed    = errors.New("server interface is closed")
	ErrInterfaceOpen      = errors.New("server interface is already open")
	ErrCommandTooLong     = errors.New("command exceeds batch payload budget")
	ErrEmptyCommand       = errors.New("command cannot be empty")
	ErrWatchdogRunning    = errors.New("watchdog is already running")
	ErrHubNotRunning      = errors.New("event hub is not running")
	ErrSubscriberClosed   = errors.New("subscriber is closed")
	ErrUnsupportedBackend = errors.New("unsupported server backend")
)

// TransportError represents a failure of one of the server channels.
type TransportError struct {
	Op      string // Operation that failed
	Backend string // "rcon" or "console"
	Err     error  // Underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(backend, op string, err error) *TransportError {
	return &TransportError{
		Op:      op,
		Backend: backend,
		Err:     err,
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrConfiguration).
func (e *ValidationError) Unwrap() error {
	return ErrConfiguration
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
