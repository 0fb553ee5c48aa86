// Package contextx carries call-scoped values (call ID, operation name)
// through context.Context so that log lines emitted by different resilience
// layers of the same logical call can be correlated.
package contextx

import (
	"context"

	"github.com/google/uuid"
)

// WithCallID returns a derived context that carries the given call ID.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey, id)
}

// EnsureCallID returns ctx unchanged when it already carries a call ID, or a
// derived context with a freshly generated one.
func EnsureCallID(ctx context.Context) context.Context {
	if CallIDFromContext(ctx) != "" {
		return ctx
	}
	return WithCallID(ctx, uuid.NewString())
}

// CallIDFromContext extracts the call ID stored in ctx.
// It returns an empty string when no call ID is present.
func CallIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey).(string)
	return id
}

// WithOperation returns a derived context that carries the name of the
// operation currently being invoked.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey, op)
}

// OperationFromContext extracts the operation name stored in ctx.
// It returns an empty string when none is present.
func OperationFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operationKey).(string)
	return op
}
