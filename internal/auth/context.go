package auth

import (
	"context"

	"example.com/footprint/internal/domain"
)

type contextKey string

const identityKey contextKey = "footprint-identity"

// Identity is the resolved caller. UserID is set for bearer-token callers, SessionID for
// anonymous callers sending X-Session-ID. Both may be set.
type Identity struct {
	UserID    string
	Email     string
	SessionID string
}

// Owner returns the owner new activities are attributed to. A user takes precedence.
func (i Identity) Owner() domain.Owner {
	if i.UserID != "" {
		return domain.Owner{UserID: i.UserID}
	}
	return domain.Owner{SessionID: i.SessionID}
}

// Anonymous reports whether neither a user nor a session was resolved.
func (i Identity) Anonymous() bool { return i.UserID == "" && i.SessionID == "" }

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext retrieves the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
