package progression

import (
	"context"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// IdentityProvider resolves the current user for a request.
// ok is false when nobody is logged in; the engine is inert in that case.
type IdentityProvider interface {
	CurrentUserID(ctx context.Context) (userID shared.UserID, ok bool)
}

type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID shared.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext extracts the user ID stored by WithUserID.
func UserIDFromContext(ctx context.Context) (shared.UserID, bool) {
	id, ok := ctx.Value(userIDKey{}).(shared.UserID)
	if !ok || id.IsEmpty() {
		return "", false
	}
	return id, true
}

// ContextIdentity reads the user placed in the context by the transport layer.
type ContextIdentity struct{}

// CurrentUserID implements IdentityProvider.
func (ContextIdentity) CurrentUserID(ctx context.Context) (shared.UserID, bool) {
	return UserIDFromContext(ctx)
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc func(ctx context.Context) (shared.UserID, bool)

// CurrentUserID implements IdentityProvider.
func (f IdentityFunc) CurrentUserID(ctx context.Context) (shared.UserID, bool) {
	return f(ctx)
}
