package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
)

// Resolver turns a session user id into a principal.
type Resolver interface {
	Resolve(ctx context.Context, rawUserID string) (rbac.Principal, error)
}

// PrincipalMiddleware resolves the session principal for every request and
// stores it in the request context. Sessions pointing at deleted users are
// cleared; store failures are logged and the request continues anonymously.
func PrincipalMiddleware(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess := shared.SessionFromContext(ctx)
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(ctx, rbac.Anonymous())))
				return
			}
			principal, err := resolver.Resolve(ctx, sess.User())
			if err != nil {
				logger.Error("resolve principal", slog.String("path", r.URL.Path), slog.Any("error", err))
			} else if !principal.Authenticated() {
				sess.SetUser("")
			}
			next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(ctx, principal)))
		})
	}
}
