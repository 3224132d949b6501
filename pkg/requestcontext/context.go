// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by transport middleware and consumed by services. Keeping
// this package free of net/http lets services read the acting profile,
// ministry, and request time without pulling in HTTP code.
//
// Usage in services (read values):
//
//	actorID := requestcontext.ActorID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithActorID(ctx, actorID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "sigrh/pkg/domain"
)

type (
	actorIDKey     struct{}
	ministryIDKey  struct{}
	actorRoleKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyMinistryID  = ministryIDKey{}
	ContextKeyActorRole   = actorRoleKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ActorID retrieves the authenticated actor's profile ID from the context.
// Returns the zero value (nil UUID) if not set.
func ActorID(ctx context.Context) id.ProfileID {
	if actorID, ok := ctx.Value(ContextKeyActorID).(id.ProfileID); ok {
		return actorID
	}
	return id.ProfileID{}
}

// WithActorID injects the acting profile ID into the context.
func WithActorID(ctx context.Context, actorID id.ProfileID) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// MinistryID retrieves the actor's ministry from the context.
// Returns the zero value (nil UUID) if not set.
func MinistryID(ctx context.Context) id.MinistryID {
	if ministryID, ok := ctx.Value(ContextKeyMinistryID).(id.MinistryID); ok {
		return ministryID
	}
	return id.MinistryID{}
}

// WithMinistryID injects the actor's ministry into the context.
func WithMinistryID(ctx context.Context, ministryID id.MinistryID) context.Context {
	return context.WithValue(ctx, ContextKeyMinistryID, ministryID)
}

// ActorRole retrieves the actor's role claim from the context.
func ActorRole(ctx context.Context) string {
	if role, ok := ctx.Value(ContextKeyActorRole).(string); ok {
		return role
	}
	return ""
}

// WithActorRole injects the actor's role claim into the context.
func WithActorRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyActorRole, role)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for workers that need a consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
