// Package auth exposes the resolved caller identity to the rest of
// the service. Session handling itself lives in the portal's auth
// gateway; by the time a request reaches this subsystem the identity
// is either resolved or absent.
package auth

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ContextProvider satisfies the service.AuthProvider collaborator by
// reading the identity the middleware bound to the request context.
type ContextProvider struct{}

func (ContextProvider) CurrentUserID(ctx context.Context) (uuid.UUID, bool) {
	return UserIDFromContext(ctx)
}
