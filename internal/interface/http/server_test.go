package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progression-engine/internal/application/progression"
	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/sqlite"
)

func newTestServer(t *testing.T) (*Server, *progression.Engine) {
	t.Helper()
	return newTestServerWith(t, func(*Config) {})
}

func newTestServerWith(t *testing.T, configure func(*Config)) (*Server, *progression.Engine) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := progression.NewEngine(progression.Config{
		Catalog:    progress.DefaultCatalog(),
		Repository: store,
		Logger:     logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	health := NewHealthChecker("test")
	health.AddCritical("storage", store.Ping)

	cfg := DefaultConfig()
	cfg.Version = "test"
	configure(&cfg)
	return NewServer(cfg, Dependencies{Engine: engine, Health: health, Logger: logger}), engine
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func do(t *testing.T, srv *Server, method, path, user, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestServer_RequiresUser(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := do(t, srv, http.MethodGet, "/api/v1/progress", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_TrackEventUnlocksBadge(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := do(t, srv, http.MethodPost, "/api/v1/progress/events", "alice",
		`{"type":"assessment_completed","data":{"score":7}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out OutcomeResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, out.Applied)
	assert.Equal(t, 100, out.TotalPoints)
	assert.Equal(t, 2, out.Level)
	assert.True(t, out.LeveledUp)
	require.Len(t, out.BadgesUnlocked, 1)
	assert.Equal(t, progress.BadgeFirstSteps, out.BadgesUnlocked[0].ID)

	rec, env = do(t, srv, http.MethodGet, "/api/v1/progress", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap ProgressResponse
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, "alice", snap.UserID)
	assert.Equal(t, 1, snap.Stats.AssessmentsCompleted)
	assert.Equal(t, "Beginner", snap.Title)
	assert.Equal(t, 3, snap.LevelProgress.Next)
}

func TestServer_UnlockBadge(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := do(t, srv, http.MethodPost, "/api/v1/progress/badges/esg_champion", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out OutcomeResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, out.Applied)
	assert.Equal(t, 200, out.TotalPoints)

	// Second unlock is a no-op.
	_, env = do(t, srv, http.MethodPost, "/api/v1/progress/badges/ESG_CHAMPION", "bob", "")
	out = OutcomeResponse{}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.False(t, out.Applied)
	assert.Equal(t, 200, out.TotalPoints)
	assert.Empty(t, out.Rejected)
}

func TestServer_RejectedOutcomes(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := map[string]struct {
		path string
		body string
	}{
		"unknown badge":   {"/api/v1/progress/badges/NOPE", ""},
		"negative points": {"/api/v1/progress/points", `{"points":-5,"reason":"oops"}`},
		"unknown streak":  {"/api/v1/progress/streaks/weekly", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, env := do(t, srv, http.MethodPost, tc.path, "carol", tc.body)
			require.Equal(t, http.StatusOK, rec.Code)

			var out OutcomeResponse
			require.NoError(t, json.Unmarshal(env.Data, &out))
			assert.False(t, out.Applied)
			assert.NotEmpty(t, out.Rejected)
			assert.Zero(t, out.TotalPoints)
		})
	}
}

func TestServer_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := map[string]struct {
		path string
		body string
		code string
	}{
		"malformed json": {"/api/v1/progress/events", `{"type":`, "invalid_json"},
		"unknown field":  {"/api/v1/progress/points", `{"points":5,"bonus":1}`, "invalid_json"},
		"missing type":   {"/api/v1/progress/events", `{"data":{}}`, "invalid_request"},
		"missing points": {"/api/v1/progress/points", `{"reason":"x"}`, "invalid_request"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, env := do(t, srv, http.MethodPost, tc.path, "dave", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestServer_StreakAndLogout(t *testing.T) {
	srv, engine := newTestServer(t)

	rec, env := do(t, srv, http.MethodPost, "/api/v1/progress/streaks/login", "erin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out OutcomeResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, out.Applied)

	assert.Equal(t, 1, engine.Metrics().ActiveSessions)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/progress/logout", "erin", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, engine.Metrics().ActiveSessions)

	saved, err := engine.LastSaved(context.Background(), "erin")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Streaks.LoginStreak)
}

func TestServer_PublicEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := do(t, srv, http.MethodGet, "/api/v1/levels/250", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lv LevelView
	require.NoError(t, json.Unmarshal(env.Data, &lv))
	assert.Equal(t, 3, lv.Level)
	assert.Equal(t, "Apprentice", lv.Title)

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/levels/-1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, srv, http.MethodGet, "/api/v1/catalog", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cat CatalogView
	require.NoError(t, json.Unmarshal(env.Data, &cat))
	assert.Len(t, cat.Badges, len(progress.DefaultBadges()))
	assert.Len(t, cat.Achievements, len(progress.DefaultAchievements()))
	assert.Len(t, cat.Levels, progress.DefaultLevelTable().MaxLevel())
	assert.Equal(t, "Novice", cat.Levels[0].Title)
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := do(t, srv, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.True(t, status.Checks["storage"].Healthy)
}

func TestHealthChecker_Aggregation(t *testing.T) {
	fail := func(context.Context) error { return errors.New("down") }
	ok := func(context.Context) error { return nil }

	h := NewHealthChecker("v1")
	h.AddCritical("storage", ok)
	h.AddOptional("cache", fail)

	status := h.Check(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, "failing checks: cache", status.Message)

	h.AddCritical("storage", fail)
	status = h.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, "failing checks: cache, storage", status.Message)
}

func TestHealthChecker_TimeoutFailsSlowProbe(t *testing.T) {
	h := NewHealthChecker("v1")
	h.SetTimeout(20 * time.Millisecond)
	h.AddCritical("storage", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := h.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Contains(t, status.Checks["storage"].Message, context.DeadlineExceeded.Error())
}

func TestServer_RejectsOversizedUserID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := do(t, srv, http.MethodGet, "/api/v1/progress", strings.Repeat("u", 200), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
