package helpers

import (
	"errors"
	"fmt"
	"stock-screener/src/logger"
	"strings"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ScreenerError struct {
	Message string
	Cause   error
}

func (e *ScreenerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ScreenerError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ ScreenerError }
type NetworkError struct{ ScreenerError }
type DataSourceError struct{ ScreenerError }
type DatabaseError struct{ ScreenerError }
type ValidationError struct{ ScreenerError }

// -----------------------------------------------------------------------------

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{ScreenerError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------

func NewDataSourceError(message string, cause error) error {
	return &DataSourceError{ScreenerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{ScreenerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewNetworkError(message string, cause error) error {
	return &NetworkError{ScreenerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{ScreenerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

// IsValidationError reports whether err (or anything it wraps) is a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler keeps a rolling failure count per operation for health reporting.
type ErrorHandler struct {
	Logger *logger.Logger
	counts map[string]int
	last   map[string]time.Time
	mu     sync.Mutex
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger: log,
		counts: make(map[string]int),
		last:   make(map[string]time.Time),
	}
}

// -----------------------------------------------------------------------------

// Handle logs err under context and returns it classified. Nil stays nil.
func (e *ErrorHandler) Handle(err error, context string) error {
	if err == nil {
		e.mu.Lock()
		if e.counts[context] > 0 {
			e.counts[context]--
		}
		e.mu.Unlock()
		return nil
	}

	e.mu.Lock()
	e.counts[context]++
	e.last[context] = time.Now()
	e.mu.Unlock()

	var (
		sErr *ScreenerError
		vErr *ValidationError
		dErr *DataSourceError
		bErr *DatabaseError
		nErr *NetworkError
	)
	switch {
	case errors.As(err, &vErr):
		e.Logger.Warning("Invalid input in %s: %v", context, err)
		return err
	case errors.As(err, &dErr), errors.As(err, &bErr), errors.As(err, &nErr), errors.As(err, &sErr):
		e.Logger.Error("Error in %s: %v", context, err)
		return err
	}

	e.Logger.Error("Error in %s: %v", context, err)

	// Wrap into specific error types based on context if simpler heuristics apply
	lowerCtx := strings.ToLower(context)
	switch {
	case strings.Contains(lowerCtx, "network") || strings.Contains(lowerCtx, "fetch"):
		return NewNetworkError(fmt.Sprintf("%s failed", context), err)
	case strings.Contains(lowerCtx, "cache") || strings.Contains(lowerCtx, "database"):
		return NewDatabaseError(fmt.Sprintf("%s failed", context), err)
	default:
		return &ScreenerError{Message: fmt.Sprintf("%s failed", context), Cause: err}
	}
}

// -----------------------------------------------------------------------------

// Counts returns a snapshot of the current failure counters.
func (e *ErrorHandler) Counts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.counts))
	for k, v := range e.counts {
		out[k] = v
	}
	return out
}
