package apidec

import (
	"context"
	"net/http"
)

// Identity represents an authenticated caller. Authentication middleware
// resolves credentials and attaches an Identity to the request context;
// this layer only checks for its presence.
type Identity interface {
	// ID returns the unique identifier for this identity.
	ID() string
}

type identityContextKeyType struct{}

var identityContextKey = identityContextKeyType{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the identity attached to ctx, or nil.
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityContextKey).(Identity); ok {
		return id
	}
	return nil
}

// DefaultAuthCheck is the authentication predicate used when none is
// configured: the caller is recognized iff an identity is present on the
// request context.
func DefaultAuthCheck(r *http.Request) bool {
	return IdentityFromContext(r.Context()) != nil
}
