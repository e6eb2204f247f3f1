package shared

import "context"

type contextKey string

const identityKey contextKey = "identity"

// Identity describes the authenticated caller attached to a request.
type Identity struct {
	UserID int64
	Name   string
	Email  string
	Role   string
}

// ContextWithIdentity attaches the caller identity to the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the caller identity, if present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
