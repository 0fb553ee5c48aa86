package retry

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes attached to errors produced by this package.
const (
	// ErrCodeTransient marks an error explicitly classified as transient.
	ErrCodeTransient errors.ErrorCode = "SHIELD_TRANSIENT"

	// ErrCodeExhausted identifies the terminal error returned after all
	// retries have been consumed.
	ErrCodeExhausted errors.ErrorCode = "SHIELD_RETRY_EXHAUSTED"
)

// Transient wraps cause in a coded error flagged retryable, so the default
// classifier retries it. Use this at integration boundaries whose failures
// are known to be transient but do not implement net.Error or carry a
// retryable flag of their own.
func Transient(cause error, msg string) error {
	return errors.Wrap(cause, ErrCodeTransient, msg).AsRetryable()
}

// IsTransient reports whether the default classifier would retry err.
func IsTransient(err error) bool {
	return ClassifyTransient(err)
}

// NonRetryable wraps cause in a coded error that the default classifier
// never retries, regardless of the underlying error's shape. Use it for
// validation and logic failures surfaced through otherwise-transient
// transports.
func NonRetryable(cause error, code errors.ErrorCode, msg string) error {
	return errors.Wrap(cause, code, msg)
}

// ExhaustedError is the terminal error returned when every attempt failed
// with a transient error. It wraps the last underlying error and records the
// total number of attempts made, so the caller can diagnose the root cause
// without consulting intermediate logs.
type ExhaustedError struct {
	// Op is the identity of the failed operation.
	Op string

	// Attempts is the total number of invocations, i.e. MaxRetries+1.
	Attempts int

	// Last is the final transient error observed.
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

// Unwrap exposes the last underlying error to errors.Is/As chains.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsExhausted reports whether err is (or wraps) an ExhaustedError.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return goerrors.As(err, &ex)
}

// AsExhausted extracts the ExhaustedError from err's chain, if present.
func AsExhausted(err error) (*ExhaustedError, bool) {
	var ex *ExhaustedError
	ok := goerrors.As(err, &ex)
	return ex, ok
}
