package visits_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/visits"
)

type failureCounter map[string]int

func (f failureCounter) ActionLogFailed(kind string) { f[kind]++ }

type brokenStore struct{ err error }

func (b brokenStore) InsertEntry(ctx context.Context, userID *int64, path string) error {
	return b.err
}

type stalledStore struct{ deadline time.Time }

func (s *stalledStore) InsertEntry(ctx context.Context, userID *int64, path string) error {
	s.deadline, _ = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func serveLogged(t *testing.T, logger *visits.ActionLogger, p rbac.Principal, target string, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(rbac.ContextWithPrincipal(req.Context(), p))
	res := httptest.NewRecorder()
	logger.Middleware(next).ServeHTTP(res, req)
	return res
}

func okHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestActionLoggerRecordsOneRowPerRequest(t *testing.T) {
	store := newMemoryStore()
	logger := visits.NewActionLogger(store, nil, nil)

	serveLogged(t, logger, rbac.Principal{ID: 2, Login: "student"}, "/users?page=2", okHandler)
	serveLogged(t, logger, rbac.Anonymous(), "/", okHandler)

	require.Equal(t, 2, store.count())
	entries, err := store.ListEntries(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "/", entries[0].Path)
	assert.Nil(t, entries[0].UserID)
	assert.Equal(t, "/users", entries[1].Path, "query string is not part of the path")
	require.NotNil(t, entries[1].UserID)
	assert.Equal(t, int64(2), *entries[1].UserID)
}

func TestActionLoggerSkipsStaticAssets(t *testing.T) {
	store := newMemoryStore()
	logger := visits.NewActionLogger(store, nil, nil)

	res := serveLogged(t, logger, rbac.Anonymous(), "/static/css/app.css", okHandler)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Zero(t, store.count())
}

func TestActionLoggerStoreFailureDoesNotBreakRequest(t *testing.T) {
	store := newMemoryStore()
	store.failErr = errors.New("connection reset")
	failures := failureCounter{}
	logger := visits.NewActionLogger(store, nil, failures)

	res := serveLogged(t, logger, rbac.Principal{ID: 2}, "/courses", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("served"))
	})

	assert.Equal(t, http.StatusAccepted, res.Code)
	assert.Equal(t, "served", res.Body.String())
	assert.Zero(t, store.count())
	assert.Equal(t, 1, failures["store"])
}

func TestActionLoggerUnclassifiedFailure(t *testing.T) {
	failures := failureCounter{}
	logger := visits.NewActionLogger(brokenStore{err: context.Canceled}, nil, failures)

	res := serveLogged(t, logger, rbac.Anonymous(), "/", okHandler)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, failures["other"])
	assert.Zero(t, failures["store"])
}

func TestActionLoggerStalledInsertTimesOut(t *testing.T) {
	store := &stalledStore{}
	failures := failureCounter{}
	logger := visits.NewActionLogger(store, nil, failures)

	start := time.Now()
	res := serveLogged(t, logger, rbac.Anonymous(), "/courses", okHandler)

	assert.Equal(t, http.StatusOK, res.Code)
	require.False(t, store.deadline.IsZero(), "insert runs with a deadline")
	assert.WithinDuration(t, start.Add(visits.InsertTimeout), store.deadline, time.Second)
	assert.Equal(t, 1, failures["other"])
}

func TestActionLoggerRowSurvivesHandlerFailure(t *testing.T) {
	store := newMemoryStore()
	logger := visits.NewActionLogger(store, nil, nil)

	res := serveLogged(t, logger, rbac.Principal{ID: 3}, "/users/9", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, 1, store.count())
}
