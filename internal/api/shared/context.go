package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/taskhub/taskhub-api/internal/policy"
)

// ContextKey is a private key type for context values set by this package.
type ContextKey string

// Context keys for request-scoped values.
const (
	// ActorContextKey is the context key for the authenticated actor.
	ActorContextKey ContextKey = "actor"

	// TraceIDKey is the key for the trace ID in the request context.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of random bytes in a trace ID.
	TraceIDLength = 16 // 32 hex characters
)

// SetTraceID adds a fresh trace ID to the context, used to correlate logs
// and error responses.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or the empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SetActor returns a context carrying the authenticated actor. The actor is
// threaded explicitly from the auth middleware to handlers rather than held
// in any ambient request state.
func SetActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}

// GetActor retrieves the authenticated actor from the context.
func GetActor(ctx context.Context) (policy.Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(policy.Actor)
	return actor, ok
}

func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
