package security

import (
	"context"
	"time"
)

// Principal is the authenticated caller of one request.
type Principal struct {
	UserID    string
	Email     string
	Role      string
	Perms     []string
	TokenID   string
	ExpiresAt time.Time
}

func (p Principal) Has(perm string) bool {
	for _, v := range p.Perms {
		if v == perm {
			return true
		}
	}
	return false
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
