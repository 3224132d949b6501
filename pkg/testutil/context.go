package testutil

import (
	"net/http"
	"time"

	id "sigrh/pkg/domain"
	"sigrh/pkg/requestcontext"
)

// WithActor injects an acting profile into the request context, simulating
// what the auth middleware does for authenticated requests.
func WithActor(req *http.Request, actorID id.ProfileID, role string) *http.Request {
	ctx := requestcontext.WithActorID(req.Context(), actorID)
	ctx = requestcontext.WithActorRole(ctx, role)
	return req.WithContext(ctx)
}

// WithMinistry injects the actor's ministry claim.
func WithMinistry(req *http.Request, ministryID id.MinistryID) *http.Request {
	return req.WithContext(requestcontext.WithMinistryID(req.Context(), ministryID))
}

// WithFrozenTime pins the request-scoped clock so handlers under test
// produce deterministic timestamps.
func WithFrozenTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
