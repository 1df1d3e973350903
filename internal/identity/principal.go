// Package identity resolves the caller of a request into a Principal that
// carries the authorization facts the order core consumes.
package identity

import (
	"context"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
)

var (
	ErrUnknownUser  = apperr.NotFound("unknown user")
	ErrUnauthorized = apperr.Authorization("manager role required")
)

// Principal is resolved once per request.
type Principal struct {
	UserID      string `json:"user_id"`
	IsManager   bool   `json:"is_manager"`
	IsSuperuser bool   `json:"is_superuser"`
}

type Resolver interface {
	Resolve(ctx context.Context, userID string) (*Principal, error)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// RequireManager fails with an authorization error unless p may manage
// orders.
func RequireManager(p *Principal) error {
	if p == nil || !p.IsManager {
		return ErrUnauthorized
	}
	return nil
}
