package blog

import (
	"context"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the request Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext returns the request identity, AnonymousIdentity
// when none was set.
func IdentityFromContext(ctx context.Context) Identity {
	if ctx == nil {
		return AnonymousIdentity{}
	}
	if identity, ok := ctx.Value(identityCtxKey).(Identity); ok && identity != nil {
		return identity
	}
	return AnonymousIdentity{}
}

// UserFromContext finds the authenticated user in the context
func UserFromContext(ctx context.Context) (*User, bool) {
	user := IdentityFromContext(ctx).User()
	return user, user != nil
}

// Can is a convenience function to check permissions from the context
func Can(ctx context.Context, p Permission) bool {
	return IdentityFromContext(ctx).Can(p)
}
