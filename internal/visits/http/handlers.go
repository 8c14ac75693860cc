package visitshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
	"github.com/campus-labs/campus/internal/view"
	"github.com/campus-labs/campus/internal/visits"
)

// ReportService defines the reporting contract used by the handler.
type ReportService interface {
	Visits(ctx context.Context, p rbac.Principal, page int) (visits.Report[visits.Entry], error)
	ExportVisits(ctx context.Context, p rbac.Principal) ([]visits.Entry, error)
	PageStats(ctx context.Context, p rbac.Principal, page int) (visits.Report[visits.PageStat], error)
	ExportPageStats(ctx context.Context, p rbac.Principal) ([]visits.PageStat, error)
	UserStats(ctx context.Context, p rbac.Principal, page int) (visits.Report[visits.UserStat], error)
	ExportUserStats(ctx context.Context, p rbac.Principal) ([]visits.UserStat, error)
}

// Handler serves the visit reports.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler creates a visit report handler.
func NewHandler(logger *slog.Logger, service ReportService, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers report routes under /visits.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/visits", func(r chi.Router) {
		r.Use(h.rbac.RequireLogin)
		r.Get("/", h.handleVisits)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Authorize(rbac.MustAction("show_statistics"), nil))
			r.Get("/stat/pages", h.handlePageStats)
			r.Get("/stat/users", h.handleUserStats)
		})
	})
}

func (h *Handler) handleVisits(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if wantsCSV(r) {
		rows, err := h.service.ExportVisits(r.Context(), principal)
		if err != nil {
			h.handleError(w, r, "export visits", err)
			return
		}
		h.writeCSV(w, visits.VisitsFilename, visits.EntriesTable(rows))
		return
	}
	report, err := h.service.Visits(r.Context(), principal, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.handleError(w, r, "load visits", err)
		return
	}
	h.render(w, r, "pages/visits_logs.html", "Visits", report)
}

func (h *Handler) handlePageStats(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if wantsCSV(r) {
		rows, err := h.service.ExportPageStats(r.Context(), principal)
		if err != nil {
			h.handleError(w, r, "export page stats", err)
			return
		}
		h.writeCSV(w, visits.PageStatsFilename, visits.PageStatsTable(rows))
		return
	}
	report, err := h.service.PageStats(r.Context(), principal, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.handleError(w, r, "load page stats", err)
		return
	}
	h.render(w, r, "pages/visits_pages.html", "Pages", report)
}

func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if wantsCSV(r) {
		rows, err := h.service.ExportUserStats(r.Context(), principal)
		if err != nil {
			h.handleError(w, r, "export user stats", err)
			return
		}
		h.writeCSV(w, visits.UserStatsFilename, visits.UserStatsTable(rows))
		return
	}
	report, err := h.service.UserStats(r.Context(), principal, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.handleError(w, r, "load user stats", err)
		return
	}
	h.render(w, r, "pages/visits_users.html", "Users", report)
}

// wantsCSV reports whether download_csv is present, whatever its value.
func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Has("download_csv")
}

func (h *Handler) writeCSV(w http.ResponseWriter, filename string, table visits.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	if _, err := table.WriteTo(w); err != nil {
		h.logger.Warn("write csv", slog.String("file", filename), slog.Any("error", err))
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   rbac.PrincipalFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.handleError(w, r, "render "+template, err)
	}
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, visits.ErrNotAllowed) {
		shared.AddFlash(r.Context(), shared.FlashWarning, rbac.DeniedMessage)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
