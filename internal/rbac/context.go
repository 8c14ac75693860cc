package rbac

import "context"

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal for the current request.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the request principal, or Anonymous when none was resolved.
func PrincipalFromContext(ctx context.Context) Principal {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok {
		return Anonymous()
	}
	return p
}
