package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campus-labs/campus/internal/shared"
)

const (
	// DeniedMessage is flashed when the policy refuses an action.
	DeniedMessage = "You do not have permission to perform this action."
	// LoginRequiredMessage is flashed when an anonymous visitor hits a protected page.
	LoginRequiredMessage = "Please log in to access this page."
)

// RecordLoader fetches the target of an action. It returns (nil, nil) when
// the record does not exist.
type RecordLoader func(ctx context.Context, id int64) (*Record, error)

// IDExtractor pulls the resource id out of a request. ok is false when the
// route carries no usable id.
type IDExtractor func(r *http.Request) (id int64, ok bool)

// URLParamID extracts an integer chi URL parameter.
func URLParamID(name string) IDExtractor {
	return func(r *http.Request) (int64, bool) {
		raw := strings.TrimSpace(chi.URLParam(r, name))
		if raw == "" {
			return 0, false
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
}

// Middleware wires authorization guards for HTTP handlers. Each guard either
// calls the next handler or answers with a redirect, so guards compose in
// order with chi's With/Use.
type Middleware struct {
	Records        RecordLoader
	Logger         *slog.Logger
	LoginPath      string
	DeniedRedirect string
}

// RequireLogin redirects anonymous principals to the login page, keeping the
// requested URL in the "next" parameter.
func (m Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()).Authenticated() {
			next.ServeHTTP(w, r)
			return
		}
		shared.AddFlash(r.Context(), shared.FlashWarning, LoginRequiredMessage)
		http.Redirect(w, r, m.loginURL(r), http.StatusSeeOther)
	})
}

// Authorize evaluates the policy for action before the wrapped handler runs.
// extract may be nil for actions without a target record.
func (m Middleware) Authorize(action Action, extract IDExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			record, err := m.loadRecord(r, extract)
			if err != nil {
				m.logger().Error("rbac load record",
					slog.String("action", string(action)),
					slog.String("path", r.URL.Path),
					slog.Any("error", err))
				m.deny(w, r)
				return
			}
			if !Allows(principal, action, record) {
				m.logger().Info("rbac denied",
					slog.String("action", string(action)),
					slog.Int64("principal_id", principal.ID),
					slog.String("path", r.URL.Path))
				m.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) loadRecord(r *http.Request, extract IDExtractor) (*Record, error) {
	if extract == nil || m.Records == nil {
		return nil, nil
	}
	id, ok := extract(r)
	if !ok {
		return nil, nil
	}
	return m.Records(r.Context(), id)
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request) {
	shared.AddFlash(r.Context(), shared.FlashWarning, DeniedMessage)
	target := m.DeniedRedirect
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (m Middleware) loginURL(r *http.Request) string {
	loginPath := m.LoginPath
	if loginPath == "" {
		loginPath = "/auth/login"
	}
	return loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
