package http

import (
	"context"

	"github.com/fjod/butchershop/internal/auth"
	"github.com/fjod/butchershop/internal/domain"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
	cartSessionKey
)

func withClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// identityFromContext returns the signed-in identity or nil.
func identityFromContext(ctx context.Context) *domain.Identity {
	if c := claimsFromContext(ctx); c != nil {
		return c.Identity()
	}
	return nil
}

func withCartSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cartSessionKey, id)
}

func cartSessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(cartSessionKey).(string)
	return id
}
