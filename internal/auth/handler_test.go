package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-labs/campus/internal/auth"
	"github.com/campus-labs/campus/internal/shared"
	"github.com/campus-labs/campus/internal/view"
	_ "github.com/campus-labs/campus/testing"
)

type authFixture struct {
	router   chi.Router
	sessions *shared.SessionManager
	observer *countingObserver
}

func newAuthFixture(t *testing.T, repo auth.Repository) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, 24*time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)

	observer := &countingObserver{}
	handler := auth.NewHandler(nil, auth.NewService(repo, adminRoleID), templates, sessionManager, csrfManager, observer)
	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	return &authFixture{router: router, sessions: sessionManager, observer: observer}
}

// do runs req through the router with a loaded session and commits it
// afterwards, returning the recorder and the session as the handler left it.
func (f *authFixture) do(t *testing.T, req *http.Request, sessionID string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: f.sessions.CookieValue(sessionID)})
	}
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	require.NoError(t, f.sessions.Commit(ctx, httptest.NewRecorder(), req, sess))
	return res, sess
}

func (f *authFixture) reload(t *testing.T, sessionID string) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: f.sessions.CookieValue(sessionID)})
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

func postLogin(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func studentRepo(t *testing.T) *stubRepo {
	return newStubRepo(&auth.User{ID: 7, Login: "student", PasswordHash: mustHash(t, "correctpass"), RoleID: 2})
}

func TestLoginPage(t *testing.T) {
	f := newAuthFixture(t, newStubRepo())

	res, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/login?next=%2Fvisits%2F", nil), "")

	assert.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `name="remember_me"`)
	assert.Contains(t, body, "next=%2fvisits%2f")
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t, studentRepo(t))

	form := url.Values{"login": {"student"}, "password": {"wrongpass"}}
	res, sess := f.do(t, postLogin("/auth/login", form), "")

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), auth.InvalidCredentialsMessage)
	assert.Contains(t, res.Body.String(), `value="student"`)
	assert.Empty(t, sess.User())
	assert.Equal(t, 1, f.observer.outcomes["failure"])
}

func TestLoginUnknownUserLooksTheSame(t *testing.T) {
	f := newAuthFixture(t, studentRepo(t))

	form := url.Values{"login": {"ghost"}, "password": {"correctpass"}}
	res, _ := f.do(t, postLogin("/auth/login", form), "")

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), auth.InvalidCredentialsMessage)
}

func TestLoginSuccessRedirectsToNext(t *testing.T) {
	f := newAuthFixture(t, studentRepo(t))

	form := url.Values{"login": {"student"}, "password": {"correctpass"}, "remember_me": {"on"}}
	res, sess := f.do(t, postLogin("/auth/login?next=%2Fusers%2F7%2Fedit", form), "")

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/users/7/edit", res.Header().Get("Location"))
	assert.Equal(t, 1, f.observer.outcomes["success"])

	stored := f.reload(t, sess.ID)
	assert.Equal(t, "7", stored.User())
	assert.True(t, stored.Remember())
}

func TestLoginIssuesFreshSessionID(t *testing.T) {
	f := newAuthFixture(t, studentRepo(t))
	_, anonymous := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/login", nil), "")
	preLogin := anonymous.ID

	form := url.Values{"login": {"student"}, "password": {"correctpass"}}
	res, sess := f.do(t, postLogin("/auth/login", form), preLogin)

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.NotEqual(t, preLogin, sess.ID)
	assert.Equal(t, "7", f.reload(t, sess.ID).User())
	stale := f.reload(t, preLogin)
	assert.Empty(t, stale.User())
	assert.NotEqual(t, preLogin, stale.ID, "old id no longer resolves")
}

func TestLoginIgnoresExternalNext(t *testing.T) {
	f := newAuthFixture(t, studentRepo(t))

	for _, next := range []string{"//evil.example", "https://evil.example", "/\\evil.example"} {
		form := url.Values{"login": {"student"}, "password": {"correctpass"}}
		res, _ := f.do(t, postLogin("/auth/login?next="+url.QueryEscape(next), form), "")
		assert.Equal(t, http.StatusSeeOther, res.Code, next)
		assert.Equal(t, "/", res.Header().Get("Location"), next)
	}
}

func TestLoginRateLimited(t *testing.T) {
	f := newAuthFixture(t, studentRepo(t))

	var last int
	for i := 0; i < 11; i++ {
		form := url.Values{"login": {"student"}, "password": {"wrongpass"}}
		res, _ := f.do(t, postLogin("/auth/login", form), "")
		last = res.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, 1, f.observer.outcomes["throttled"])
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newAuthFixture(t, studentRepo(t))

	form := url.Values{"login": {"student"}, "password": {"correctpass"}}
	_, sess := f.do(t, postLogin("/auth/login", form), "")
	require.Equal(t, "7", f.reload(t, sess.ID).User())

	res, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/logout", nil), sess.ID)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))

	after := f.reload(t, sess.ID)
	assert.Empty(t, after.User())
	assert.NotEqual(t, sess.ID, after.ID)
}
