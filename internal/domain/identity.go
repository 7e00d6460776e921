package domain

import "context"

// Identity is the authenticated caller on whose behalf an operation runs.
type Identity struct {
	UserID string
}

// IsZero reports whether no caller has been resolved.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by WithIdentity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && !id.IsZero()
}
