package auth

import (
	"context"
	"strings"
)

// HeaderManagerID carries the authenticated manager id set by the upstream
// identity gateway. This service trusts it and never authenticates itself.
const HeaderManagerID = "X-Manager-Id"

// Principal is the acting manager passed explicitly into every core call.
type Principal struct {
	ManagerID string
}

// IsZero reports whether no manager identity is present.
func (p Principal) IsZero() bool { return strings.TrimSpace(p.ManagerID) == "" }

type ctxKey struct{}

// WithPrincipal stores p on ctx for the HTTP layer.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal placed by the auth middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && !p.IsZero()
}
