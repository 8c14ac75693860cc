package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
	"github.com/campus-labs/campus/internal/view"
)

const (
	// InvalidCredentialsMessage never reveals which of the two fields was wrong.
	InvalidCredentialsMessage = "Invalid login or password."

	loginAttemptsPerMinute = 10
)

// LoginObserver records login outcomes.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	observer       LoginObserver
}

// NewHandler constructs a Handler instance. observer may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, observer LoginObserver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		observer:       observer,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.With(httprate.Limit(loginAttemptsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, keyByLogin),
		httprate.WithLimitHandler(h.tooManyAttempts),
	)).Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Login      string `validate:"required,max=100"`
	Password   string `validate:"required,max=128"`
	RememberMe bool
}

type loginPageData struct {
	Form loginForm
	Next string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, loginPageData{Next: safeNext(r.URL.Query().Get("next"))})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := loginForm{
		Login:      strings.TrimSpace(r.PostFormValue("login")),
		Password:   r.PostFormValue("password"),
		RememberMe: r.PostFormValue("remember_me") == "on",
	}
	next := safeNext(r.URL.Query().Get("next"))

	var user *User
	err := h.validator.Struct(form)
	if err == nil {
		user, err = h.service.Authenticate(r.Context(), form.Login, form.Password)
	}
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.Is(err, shared.ErrInvalidCredentials) && !errors.As(err, &verrs) {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		h.observe("failure")
		shared.AddFlash(r.Context(), shared.FlashDanger, InvalidCredentialsMessage)
		form.Password = ""
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: form, Next: next})
		return
	}

	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.sessionManager.Renew(sess)
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.SetRemember(form.RememberMe)
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: "You have successfully logged in."})
	h.observe("success")
	h.logger.Info("user logged in", slog.Int64("user_id", user.ID))

	target := next
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) tooManyAttempts(w http.ResponseWriter, r *http.Request) {
	h.observe("throttled")
	h.logger.Warn("login rate limited", slog.String("remote_addr", r.RemoteAddr))
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Log in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   rbac.PrincipalFromContext(r.Context()),
		Data:        data,
	}
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func (h *Handler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveLogin(outcome)
	}
}

// safeNext keeps only local absolute paths so the login form cannot be used
// as an open redirect.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

func keyByLogin(r *http.Request) (string, error) {
	return strings.ToLower(strings.TrimSpace(r.PostFormValue("login"))), nil
}
