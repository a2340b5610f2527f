package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotInitialized is returned when ProcessMessage is called before
	// Initialize. Non-retryable programmer error.
	ErrNotInitialized = errors.New("pipeline not initialized")

	// ErrShuttingDown is returned once shutdown has begun.
	ErrShuttingDown = errors.New("pipeline is shutting down")
)

// InitializationError aborts startup. Non-retryable.
type InitializationError struct {
	Component string
	Err       error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Component, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

func (e *InitializationError) Retryable() bool { return false }

// ValidationError marks caller-fault input: empty content or missing context.
// Non-retryable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid message: " + e.Reason
}

func (e *ValidationError) Retryable() bool { return false }

// TimeoutError is returned when the staged computation exceeds the configured
// bound. Retryable.
type TimeoutError struct {
	Stage   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s stage timed out after %s", e.Stage, e.Timeout)
}

func (e *TimeoutError) Retryable() bool { return true }
