package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/roles"
	"github.com/campus-labs/campus/internal/shared"
	"github.com/campus-labs/campus/internal/view"
)

// RoleLister feeds the role select of the user forms.
type RoleLister interface {
	ListRoles(ctx context.Context) ([]roles.Role, error)
}

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     RoleLister
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roles RoleLister, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, roles: roles, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	id := rbac.URLParamID("id")
	guard := func(action string) func(http.Handler) http.Handler {
		return h.rbac.Authorize(rbac.MustAction(action), id)
	}

	r.Get("/", h.listUsers)
	r.With(h.rbac.RequireLogin, h.rbac.Authorize(rbac.MustAction("create"), nil)).Group(func(r chi.Router) {
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createUser)
	})
	r.With(guard("show")).Get("/{id}", h.showUser)
	r.With(h.rbac.RequireLogin, guard("edit")).Group(func(r chi.Router) {
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.updateUser)
		r.Get("/{id}/password", h.showPasswordForm)
		r.Post("/{id}/password", h.changePassword)
	})
	r.With(h.rbac.RequireLogin, guard("delete")).Post("/{id}/delete", h.deleteUser)
}

type formErrors map[string]string

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, "pages/users_list.html", "Users", map[string]any{"Errors": formErrors{"general": "Could not load users."}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users_list.html", "Users", map[string]any{"Users": users}, http.StatusOK)
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/users_show.html", user.FullName(), map[string]any{"User": user}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "pages/users_new.html", "New user", map[string]any{"Form": CreateInput{}}, formErrors{}, http.StatusOK)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := CreateInput{
		Login:      r.PostFormValue("login"),
		Password:   r.PostFormValue("password"),
		LastName:   r.PostFormValue("last_name"),
		FirstName:  r.PostFormValue("first_name"),
		MiddleName: r.PostFormValue("middle_name"),
		RoleID:     parseID(r.PostFormValue("role_id")),
	}
	id, err := h.service.Create(r.Context(), in)
	if err != nil {
		in.Password = ""
		h.renderForm(w, r, "pages/users_new.html", "New user", map[string]any{"Form": in}, h.formErrors(err, "create user"), http.StatusUnprocessableEntity)
		return
	}
	h.logger.Info("user created", slog.Int64("user_id", id), slog.Int64("by", rbac.PrincipalFromContext(r.Context()).ID))
	h.redirectWithFlash(w, r, "/users/"+strconv.FormatInt(id, 10), shared.FlashSuccess, "User created.")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	form := UpdateInput{LastName: user.LastName, FirstName: user.FirstName, RoleID: user.RoleID}
	if user.MiddleName != nil {
		form.MiddleName = *user.MiddleName
	}
	h.renderForm(w, r, "pages/users_edit.html", "Edit user", map[string]any{"User": user, "Form": form}, formErrors{}, http.StatusOK)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := UpdateInput{
		LastName:   r.PostFormValue("last_name"),
		FirstName:  r.PostFormValue("first_name"),
		MiddleName: r.PostFormValue("middle_name"),
		RoleID:     parseID(r.PostFormValue("role_id")),
	}
	principal := rbac.PrincipalFromContext(r.Context())
	canChangeRole := rbac.Allows(principal, rbac.ActionChangeRole, &rbac.Record{ID: user.ID})
	if err := h.service.Update(r.Context(), user.ID, in, canChangeRole); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.redirectWithFlash(w, r, "/users", shared.FlashInfo, "User not found.")
			return
		}
		h.renderForm(w, r, "pages/users_edit.html", "Edit user", map[string]any{"User": user, "Form": in}, h.formErrors(err, "update user"), http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/users/"+strconv.FormatInt(user.ID, 10), shared.FlashSuccess, "User updated.")
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := rbac.URLParamID("id")(r)
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.redirectWithFlash(w, r, "/users", shared.FlashInfo, "User not found.")
			return
		}
		h.logger.Error("delete user failed", slog.Int64("user_id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/users", shared.FlashDanger, "Could not delete the user.")
		return
	}
	h.logger.Info("user deleted", slog.Int64("user_id", id), slog.Int64("by", rbac.PrincipalFromContext(r.Context()).ID))
	h.redirectWithFlash(w, r, "/users", shared.FlashSuccess, "User deleted.")
}

func (h *Handler) showPasswordForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/users_password.html", "Change password", map[string]any{"User": user, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := ChangePasswordInput{
		OldPassword:     r.PostFormValue("old_password"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	if err := h.service.ChangePassword(r.Context(), user.ID, in); err != nil {
		h.render(w, r, "pages/users_password.html", "Change password", map[string]any{"User": user, "Errors": h.formErrors(err, "change password")}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/users/"+strconv.FormatInt(user.ID, 10), shared.FlashSuccess, "Password changed.")
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	id, ok := rbac.URLParamID("id")(r)
	if !ok {
		h.redirectWithFlash(w, r, "/users", shared.FlashInfo, "User not found.")
		return nil, false
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.redirectWithFlash(w, r, "/users", shared.FlashInfo, "User not found.")
			return nil, false
		}
		h.logger.Error("load user failed", slog.Int64("user_id", id), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}

// formErrors turns service errors into messages next to form fields.
func (h *Handler) formErrors(err error, op string) formErrors {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return formErrors(verr.Fields)
	case errors.Is(err, ErrDuplicateLogin):
		return formErrors{"Login": "This login is already taken."}
	case errors.Is(err, ErrWrongPassword):
		return formErrors{"OldPassword": "The current password is wrong."}
	case errors.Is(err, ErrPasswordMismatch):
		return formErrors{"ConfirmPassword": "Passwords do not match."}
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		return formErrors{"general": "Could not save changes. Please try again."}
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, errs formErrors, status int) {
	data["Errors"] = errs
	roleList, err := h.roles.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
	}
	data["Roles"] = roleList
	if len(errs) > 0 {
		shared.AddFlash(r.Context(), shared.FlashDanger, "Please correct the errors below.")
	}
	h.render(w, r, template, title, data, status)
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

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
