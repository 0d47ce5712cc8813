package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/enums"
)

type principalKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsBusiness reports whether the caller acts on its own clip balance.
func (p Principal) IsBusiness() bool {
	return p.Role == enums.RoleBusiness && p.UserID != uuid.Nil
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// UserIDFromContext returns the caller id as text, or "" for anonymous
// requests. Redis scopes are keyed on it.
func UserIDFromContext(ctx context.Context) string {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID == uuid.Nil {
		return ""
	}
	return p.UserID.String()
}

// BusinessIDFromContext returns the caller's id when they act as a business.
func BusinessIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || !p.IsBusiness() {
		return uuid.Nil, false
	}
	return p.UserID, true
}
