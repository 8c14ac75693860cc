package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/campus-labs/campus/internal/auth"
	"github.com/campus-labs/campus/internal/courses"
	"github.com/campus-labs/campus/internal/observability"
	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
	"github.com/campus-labs/campus/internal/users"
	"github.com/campus-labs/campus/internal/view"
	"github.com/campus-labs/campus/internal/visits"
	visitshttp "github.com/campus-labs/campus/internal/visits/http"
	"github.com/campus-labs/campus/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Principals     auth.Resolver
	ActionLogger   *visits.ActionLogger
	AuthHandler    *auth.Handler
	UsersHandler   *users.Handler
	VisitsHandler  *visitshttp.Handler
	CoursesHandler *courses.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with campus defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Principals:     params.Principals,
		ActionLogger:   params.ActionLogger,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:       "Home",
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
			Principal:   rbac.PrincipalFromContext(r.Context()),
		}
		if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
			logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.VisitsHandler != nil {
		params.VisitsHandler.MountRoutes(r)
	}
	if params.CoursesHandler != nil {
		r.Route("/courses", params.CoursesHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix(shared.StaticPrefix, http.FileServer(http.FS(staticFS)))
		r.Handle(shared.StaticPrefix+"*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler caches static assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
