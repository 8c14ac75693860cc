package visits

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
)

// InsertTimeout bounds a single action log insert.
const InsertTimeout = 2 * time.Second

// EntryStore persists action log rows.
type EntryStore interface {
	InsertEntry(ctx context.Context, userID *int64, path string) error
}

// FailureRecorder counts action log failures by kind.
type FailureRecorder interface {
	ActionLogFailed(kind string)
}

// ActionLogger records one action log row per request.
type ActionLogger struct {
	store    EntryStore
	logger   *slog.Logger
	failures FailureRecorder
}

// NewActionLogger builds an ActionLogger. logger and failures may be nil.
func NewActionLogger(store EntryStore, logger *slog.Logger, failures FailureRecorder) *ActionLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionLogger{store: store, logger: logger, failures: failures}
}

// Record stores a visit of path by p, giving up after InsertTimeout.
func (l *ActionLogger) Record(ctx context.Context, p rbac.Principal, path string) error {
	ctx, cancel := context.WithTimeout(ctx, InsertTimeout)
	defer cancel()
	return l.store.InsertEntry(ctx, p.UserID(), path)
}

// Middleware records every non-static request before passing it on. A failed
// insert is logged and counted; the request is always served.
func (l *ActionLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.IsStaticPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		principal := rbac.PrincipalFromContext(r.Context())
		if err := l.Record(r.Context(), principal, r.URL.Path); err != nil {
			l.fail(r, err)
		}
		next.ServeHTTP(w, r)
	})
}

func (l *ActionLogger) fail(r *http.Request, err error) {
	attrs := []any{slog.String("path", r.URL.Path), slog.Any("error", err)}
	kind := "other"
	if errors.Is(err, ErrStore) {
		kind = "store"
		l.logger.Warn("action log insert failed", attrs...)
	} else {
		l.logger.Error("action log failed", attrs...)
	}
	if l.failures != nil {
		l.failures.ActionLogFailed(kind)
	}
}
