package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ergopulse/internal/cache"
	"ergopulse/internal/services"
	"ergopulse/internal/survey"
)

type stubSnapshots struct {
	entry *cache.Entry
}

func (s stubSnapshots) Status() (*cache.Entry, cache.Stats, bool) {
	return s.entry, cache.Stats{}, true
}

type stubClients int

func (c stubClients) GetClientCount() int { return int(c) }

func newHealthRouter(snapshots services.SnapshotStatus) http.Handler {
	logger := testLogger()
	h := NewHealthHandler(services.NewHealthService("1.0.0", "", snapshots, stubClients(2), logger), logger)
	r := chi.NewRouter()
	r.Mount("/api/health", h.Routes())
	r.Get("/api/version", h.Version)
	return r
}

func TestHealthHandler(t *testing.T) {
	loaded := &cache.Entry{
		Snapshot:  &survey.Snapshot{Source: "file:respostas.csv", LoadedAt: time.Now()},
		FetchedAt: time.Now(),
		TTL:       time.Minute,
	}

	tests := []struct {
		name           string
		path           string
		snapshots      services.SnapshotStatus
		expectedStatus int
		expectedState  string
	}{
		{"health", "/api/health", nil, http.StatusOK, "ok"},
		{"live", "/api/health/live", nil, http.StatusOK, "alive"},
		{"ready", "/api/health/ready", stubSnapshots{entry: loaded}, http.StatusOK, "ready"},
		{"not ready without service", "/api/health/ready", nil, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newHealthRouter(tt.snapshots).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			var status services.HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.expectedState, status.Status)
			assert.Equal(t, "1.0.0", status.Version)
		})
	}
}

func TestHealthHandler_Version(t *testing.T) {
	w := httptest.NewRecorder()
	newHealthRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "1.0.0", body["version"])
	assert.Contains(t, body, "go_version")
}
