package retry

import (
	"context"
	goerrors "errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/agilira/go-errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classifier reports whether an error is transient, i.e. worth retrying.
type Classifier func(error) bool

// ClassifyTransient is the default classifier. It retries:
//
//   - errors carrying a retryable flag (see [Transient] and go-errors)
//   - net.Error timeouts and connection-level syscall failures
//     (ECONNREFUSED, ECONNRESET, EPIPE, ETIMEDOUT)
//   - io.ErrUnexpectedEOF
//   - deadline expiry (context.DeadlineExceeded, os.ErrDeadlineExceeded)
//
// Everything else (validation failures, programming errors, cancellation)
// is treated as terminal.
func ClassifyTransient(err error) bool {
	if err == nil {
		return false
	}

	// An explicit retryable flag wins in both directions: a coded error
	// that is not flagged retryable is terminal even if it wraps a network
	// failure.
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	var ne net.Error
	if goerrors.As(err, &ne) && ne.Timeout() {
		return true
	}

	switch {
	case goerrors.Is(err, syscall.ECONNREFUSED),
		goerrors.Is(err, syscall.ECONNRESET),
		goerrors.Is(err, syscall.EPIPE),
		goerrors.Is(err, syscall.ETIMEDOUT):
		return true
	case goerrors.Is(err, io.ErrUnexpectedEOF):
		return true
	case goerrors.Is(err, context.DeadlineExceeded),
		goerrors.Is(err, os.ErrDeadlineExceeded):
		return true
	}

	return false
}

// ClassifyErrors returns a classifier that retries only errors matching one
// of the given targets under errors.Is.
func ClassifyErrors(targets ...error) Classifier {
	return func(err error) bool {
		for _, t := range targets {
			if goerrors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

// ClassifyGRPC returns a classifier that retries errors carrying one of the
// given gRPC status codes, for wrapping client-side gRPC invocations.
func ClassifyGRPC(retryable ...codes.Code) Classifier {
	return func(err error) bool {
		st, ok := status.FromError(err)
		if !ok {
			return false
		}
		for _, c := range retryable {
			if st.Code() == c {
				return true
			}
		}
		return false
	}
}

// Any combines classifiers; the result retries when any of them would.
func Any(classifiers ...Classifier) Classifier {
	return func(err error) bool {
		for _, c := range classifiers {
			if c(err) {
				return true
			}
		}
		return false
	}
}
