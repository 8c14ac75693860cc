package courses

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
	"github.com/campus-labs/campus/internal/view"
)

// Handler serves the course catalogue.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers course routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listCourses)
	r.Get("/{id}", h.showCourse)
	r.Get("/{id}/reviews", h.listReviews)
	r.With(h.rbac.RequireLogin).Post("/{id}/reviews", h.addReview)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := Filter{Name: query.Get("name")}
	for _, raw := range query["category_ids"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.CategoryIDs = append(filter.CategoryIDs, id)
		}
	}
	page, err := h.service.Catalogue(r.Context(), filter, shared.PageFromQuery(query))
	if err != nil {
		h.serverError(w, "list courses", err)
		return
	}
	h.render(w, r, "pages/courses_index.html", "Courses", map[string]any{
		"Page":  page,
		"Query": searchQuery(filter),
	}, http.StatusOK)
}

func (h *Handler) showCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := rbac.URLParamID("id")(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	detail, err := h.service.Detail(r.Context(), id, rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, "show course", err)
		return
	}
	h.render(w, r, "pages/courses_show.html", detail.Course.Name, map[string]any{"Detail": detail}, http.StatusOK)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := rbac.URLParamID("id")(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	query := r.URL.Query()
	sort := ParseReviewSort(query.Get("sort_by"))
	page, err := h.service.Reviews(r.Context(), id, sort, shared.PageFromQuery(query), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, "list reviews", err)
		return
	}
	h.render(w, r, "pages/courses_reviews.html", "Reviews", map[string]any{"Page": page}, http.StatusOK)
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) {
	id, ok := rbac.URLParamID("id")(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	back := "/courses/" + strconv.FormatInt(id, 10)
	rating, err := strconv.Atoi(r.PostFormValue("rating"))
	if err != nil {
		h.redirectWithFlash(w, r, back, shared.FlashDanger, "Choose a rating from 0 to 5.")
		return
	}
	in := ReviewInput{Rating: rating, Text: r.PostFormValue("text")}
	principal := rbac.PrincipalFromContext(r.Context())
	err = h.service.AddReview(r.Context(), id, principal, in)
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		h.logger.Info("review added", slog.Int64("course_id", id), slog.Int64("user_id", principal.ID))
		h.redirectWithFlash(w, r, back, shared.FlashSuccess, "Review added.")
	case errors.Is(err, ErrAlreadyReviewed):
		h.redirectWithFlash(w, r, back, shared.FlashDanger, "You have already reviewed this course.")
	case errors.Is(err, ErrInvalidRating):
		h.redirectWithFlash(w, r, back, shared.FlashDanger, "Choose a rating from 0 to 5.")
	case errors.As(err, &verrs):
		h.redirectWithFlash(w, r, back, shared.FlashDanger, "The review text must not be empty.")
	case errors.Is(err, shared.ErrNotFound):
		h.notFound(w, r)
	default:
		h.logger.Error("add review", slog.Int64("course_id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, back, shared.FlashDanger, "Could not save the review. Please try again.")
	}
}

// searchQuery rebuilds the filter part of the catalogue URL for pagination links.
func searchQuery(filter Filter) string {
	values := url.Values{}
	if filter.Name != "" {
		values.Set("name", filter.Name)
	}
	for _, id := range filter.CategoryIDs {
		values.Add("category_ids", strconv.FormatInt(id, 10))
	}
	return values.Encode()
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.redirectWithFlash(w, r, "/courses", shared.FlashInfo, "Course not found.")
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
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
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.AddFlash(r.Context(), kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}
