package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/reelscore/config"
	"github.com/use-agent/reelscore/models"
	"github.com/use-agent/reelscore/pipeline"
)

type stubService struct{}

func (stubService) LookupMaxAge(_ context.Context, q string, _ time.Duration) (models.Movie, pipeline.Outcome) {
	return models.Movie{Title: q}, pipeline.Outcome{}
}

func (stubService) Run(_ context.Context, titles []string, _ pipeline.Progress) (*models.Report, error) {
	return &models.Report{Summary: models.Summary{Total: len(titles)}}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("REELSCORE_SERVER_MODE", "test")
	t.Setenv("REELSCORE_AUTH_API_KEYS", "secret")
	v, err := config.New("")
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func TestRouter_HealthWithoutAuth(t *testing.T) {
	r := NewRouter(Deps{Service: stubService{}, Version: "test"}, testConfig(t), time.Now())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestRouter_LookupRequiresKey(t *testing.T) {
	r := NewRouter(Deps{Service: stubService{}}, testConfig(t), time.Now())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lookup", strings.NewReader(`{"title":"heat"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/lookup", strings.NewReader(`{"title":"heat"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"heat"`)
}
