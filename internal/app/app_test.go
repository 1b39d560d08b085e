package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ergopulse/internal/config"
	"ergopulse/internal/source"
	"ergopulse/internal/survey"
)

const surveyCSV = `Carimbo de data/hora,Nome,Setor,Líder,Você está sentindo dor hoje?,Local da dor
03/03/2025 08:00:00,Ana,Laminação GDR,Carlos,Sim,"Mãos, Coluna"
10/03/2025 09:00:00,Bia,laminacao,Carlos,Sim ,Mãos
12/03/2025 10:00:00,Caio,"Laminação, GDR",Dora,Não,Ombro
05/02/2025 11:00:00,Davi,GDR Norte,Dora,SIM,Joelho
`

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeSurvey(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "respostas.csv")
	require.NoError(t, os.WriteFile(path, []byte(surveyCSV), 0o600))
	return path
}

// testConfig serves the survey from a local file with rate limiting off
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Source.Kind = "file"
	cfg.Source.Path = writeSurvey(t)
	cfg.Security.RateLimit.Enabled = false
	cfg.Security.AdminKey = "s3cret"
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApplication(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	app, err := New(cfg, createTestLogger())
	require.NoError(t, err)
	t.Cleanup(app.WebSocketHub.Stop)
	return app
}

func TestNewApplication(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		wantErr       bool
		errorContains string
	}{
		{
			name: "defaults",
			env:  map[string]string{},
		},
		{
			name:          "invalid port",
			env:           map[string]string{"ERGO_SERVER_PORT": "-1"},
			wantErr:       true,
			errorContains: "config validation failed",
		},
		{
			name:          "csv url without url",
			env:           map[string]string{"ERGO_SOURCE_KIND": "csv_url"},
			wantErr:       true,
			errorContains: "source.url is required",
		},
		{
			name:          "unknown timezone",
			env:           map[string]string{"ERGO_PIPELINE_TIMEZONE": "America/Atlantis"},
			wantErr:       true,
			errorContains: "invalid pipeline timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: error\n"), 0o600))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			app, err := NewApplication(configPath)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Nil(t, app)
				return
			}

			require.NoError(t, err)
			t.Cleanup(app.WebSocketHub.Stop)
			assert.NotNil(t, app.Router)
			assert.NotNil(t, app.Server)
			assert.NotNil(t, app.Dashboard)
			assert.NotNil(t, app.HealthService)
			assert.Equal(t, ":8080", app.Server.Addr)
		})
	}
}

func TestApplication_Routes(t *testing.T) {
	app := newTestApplication(t, testConfig(t))

	tests := []struct {
		name           string
		method         string
		path           string
		headers        map[string]string
		expectedStatus int
		contains       string
	}{
		{
			name:           "health",
			method:         http.MethodGet,
			path:           "/api/health",
			expectedStatus: http.StatusOK,
			contains:       `"status":"ok"`,
		},
		{
			name:           "version",
			method:         http.MethodGet,
			path:           "/api/version",
			expectedStatus: http.StatusOK,
			contains:       `"go_version"`,
		},
		{
			name:           "options",
			method:         http.MethodGet,
			path:           "/api/survey/options",
			expectedStatus: http.StatusOK,
			contains:       `"months":["2025-03","2025-02"]`,
		},
		{
			name:           "frequency",
			method:         http.MethodGet,
			path:           "/api/survey/frequency?month=2025-03&sector=Lamina%C3%A7%C3%A3o",
			expectedStatus: http.StatusOK,
			contains:       `"top_region":"Mãos"`,
		},
		{
			name:           "frequency with bad month",
			method:         http.MethodGet,
			path:           "/api/survey/frequency?month=03-2025",
			expectedStatus: http.StatusBadRequest,
			contains:       `"error_code":"VALIDATION_FAILED"`,
		},
		{
			name:           "csv export",
			method:         http.MethodGet,
			path:           "/api/survey/frequency.csv",
			expectedStatus: http.StatusOK,
			contains:       "Mãos,2,",
		},
		{
			name:           "chart",
			method:         http.MethodGet,
			path:           "/chart?month=all",
			expectedStatus: http.StatusOK,
			contains:       "echarts",
		},
		{
			name:           "diagnostics",
			method:         http.MethodGet,
			path:           "/api/survey/diagnostics",
			expectedStatus: http.StatusOK,
			contains:       `"cache"`,
		},
		{
			name:           "refresh without key",
			method:         http.MethodPost,
			path:           "/api/survey/refresh",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "refresh",
			method:         http.MethodPost,
			path:           "/api/survey/refresh",
			headers:        map[string]string{"X-API-Key": "s3cret"},
			expectedStatus: http.StatusOK,
			contains:       `"source":"file:respostas.csv"`,
		},
		{
			name:           "unknown route",
			method:         http.MethodGet,
			path:           "/api/nope",
			expectedStatus: http.StatusNotFound,
			contains:       `"status":404`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			app.Router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.contains != "" {
				assert.Contains(t, w.Body.String(), tt.contains)
			}
		})
	}
}

func TestApplication_Middleware(t *testing.T) {
	app := newTestApplication(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))

	gz := httptest.NewRequest(http.MethodGet, "/api/survey/options", nil)
	gz.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, gz)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	scrape := httptest.NewRecorder()
	app.Router.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, scrape.Code)
	assert.Contains(t, scrape.Body.String(), "http_requests_total")
}

func TestApplication_UploadOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Security.RateLimit.Enabled = false
	require.NoError(t, cfg.Validate())
	app := newTestApplication(t, cfg)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/survey/options", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NO_SURVEY_DATA")

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/survey/refresh", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Server.ShutdownTimeout = 5 * time.Second

	app, err := New(cfg, createTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx, cancel))

	url := "http://" + cfg.Server.Addr() + "/api/health/ready"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var status struct {
			Status string `json:"status"`
		}
		return json.NewDecoder(resp.Body).Decode(&status) == nil && status.Status == "ready"
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, app.Stop(context.Background()))
	assert.Zero(t, app.WebSocketHub.GetClientCount())

	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestNewPipeline(t *testing.T) {
	cfg := config.Default().Pipeline
	cfg.Timezone = "America/Sao_Paulo"
	cfg.RegionAliases = map[string]string{"mao": "Mãos"}

	pipeline, err := NewPipeline(cfg, createTestLogger())
	require.NoError(t, err)

	table, err := source.DecodeCSV(strings.NewReader(surveyCSV))
	require.NoError(t, err)
	snap, err := pipeline.BuildSnapshot(table)
	require.NoError(t, err)

	report := pipeline.Run(snap, survey.FilterCriteria{Month: "2025-03"})
	assert.Equal(t, survey.StateOK, report.State)
	assert.Equal(t, map[string]int{"Mãos": 2, "Coluna": 1}, report.Frequency.Counts())

	cfg.Timezone = "Nowhere/Land"
	_, err = NewPipeline(cfg, createTestLogger())
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SourceConfig
		wantNil  bool
		wantName string
		wantErr  bool
	}{
		{name: "none", cfg: config.SourceConfig{Kind: "none"}, wantNil: true},
		{name: "file", cfg: config.SourceConfig{Kind: "file", Path: "/data/respostas.csv"}, wantName: "file:respostas.csv"},
		{
			name:     "csv url",
			cfg:      config.SourceConfig{Kind: "csv_url", URL: "https://docs.google.com/spreadsheets/d/e/x/pub?output=csv", FetchTimeout: time.Second},
			wantName: "csv_url:docs.google.com",
		},
		{name: "sheets", cfg: config.SourceConfig{Kind: "sheets", SpreadsheetID: "1AbC"}, wantName: "sheets:1AbC"},
		{name: "unknown", cfg: config.SourceConfig{Kind: "ftp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(tt.cfg, createTestLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, src)
				return
			}
			require.NotNil(t, src)
			assert.Equal(t, tt.wantName, src.Name())
		})
	}
}
