package httpx

import (
	"context"

	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// Unexported context key types to avoid collisions across packages.
type (
	sessionKey  struct{}
	locationKey struct{}
)

// SetSessionInContext returns a child context carrying a copy of the session
// the guard admitted the request with.
func SetSessionInContext(ctx context.Context, session domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session.Clone())
}

// GetSessionFromContext returns the session stored by the guard middleware.
func GetSessionFromContext(ctx context.Context) (domainauth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(domainauth.Session)
	return s, ok
}

// WithLocation records the console location a request originated from.
// Outgoing calls made on behalf of that request see it through LocationFromContext.
func WithLocation(ctx context.Context, location string) context.Context {
	if location == "" {
		return ctx
	}
	return context.WithValue(ctx, locationKey{}, location)
}

// LocationFromContext returns the location set by WithLocation, or "".
func LocationFromContext(ctx context.Context) string {
	loc, _ := ctx.Value(locationKey{}).(string)
	return loc
}
