package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ergopulse/internal/cache"
	apierrors "ergopulse/internal/errors"
	"ergopulse/internal/exporter"
	"ergopulse/internal/middleware"
	"ergopulse/internal/services"
	"ergopulse/internal/survey"
)

// MockSurveyService is a mock implementation of SurveyServiceInterface
type MockSurveyService struct {
	mock.Mock
}

func (m *MockSurveyService) Options(ctx context.Context) (survey.Options, error) {
	args := m.Called()
	return args.Get(0).(survey.Options), args.Error(1)
}

func (m *MockSurveyService) Frequency(ctx context.Context, criteria survey.FilterCriteria) (survey.Report, error) {
	args := m.Called(criteria)
	return args.Get(0).(survey.Report), args.Error(1)
}

func (m *MockSurveyService) Diagnostics(ctx context.Context) (services.DiagnosticsView, error) {
	args := m.Called()
	return args.Get(0).(services.DiagnosticsView), args.Error(1)
}

func (m *MockSurveyService) Refresh(ctx context.Context) (*cache.Entry, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.Entry), args.Error(1)
}

func (m *MockSurveyService) Upload(ctx context.Context, name string, data []byte) (*cache.Entry, error) {
	args := m.Called(name, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.Entry), args.Error(1)
}

const testAdminKey = "s3cret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRouter(svc *MockSurveyService) http.Handler {
	logger := testLogger()
	h := NewSurveyHandler(svc, middleware.NewValidator(), apierrors.NewErrorHandler(logger, false),
		SurveyHandlerConfig{MaxUploadBytes: 1 << 20, AdminKey: testAdminKey}, logger)
	h.clock = func() time.Time { return time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Mount("/api/survey", h.Routes())
	r.Method(http.MethodGet, "/chart", NewChartHandler(h, logger))
	return r
}

func marchReport() survey.Report {
	return survey.Report{
		State:    survey.StateOK,
		Criteria: survey.FilterCriteria{Month: "2025-03", Sector: "Laminação"},
		Summary:  survey.Summary{Filtered: 3, Affirmative: 2, AffirmativeRate: 2.0 / 3},
		Frequency: survey.FrequencyResult{
			Entries: []survey.RegionCount{
				{Region: "Mãos", Count: 2},
				{Region: "Coluna", Count: 1},
			},
			Affirmative: 2,
			Tokens:      3,
		},
		Advisory: &survey.Advisory{TopRegion: "Mãos", TopCount: 2, Sector: "Laminação"},
	}
}

func decodeProblem(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&problem))
	return problem
}

func TestSurveyHandler_GetFrequency(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockSurveyService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:  "filters mapped to criteria",
			query: "?month=2025-03&sector=Lamina%C3%A7%C3%A3o&leader=Carlos&leader=+Dora+",
			setupMock: func(m *MockSurveyService) {
				m.On("Frequency", survey.FilterCriteria{
					Month:   "2025-03",
					Sector:  "Laminação",
					Leaders: []string{"Carlos", "Dora"},
				}).Return(marchReport(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "all selectors mean no constraint",
			query: "?month=all&sector=Todos&leader=all&leader=Carlos",
			setupMock: func(m *MockSurveyService) {
				m.On("Frequency", survey.FilterCriteria{}).Return(marchReport(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed month rejected before the service",
			query:          "?month=mar%C3%A7o",
			setupMock:      func(m *MockSurveyService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:  "no snapshot",
			query: "",
			setupMock: func(m *MockSurveyService) {
				m.On("Frequency", survey.FilterCriteria{}).Return(survey.Report{}, services.ErrNoSnapshot)
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NO_SURVEY_DATA",
		},
		{
			name:  "source unavailable",
			query: "",
			setupMock: func(m *MockSurveyService) {
				m.On("Frequency", survey.FilterCriteria{}).Return(survey.Report{},
					&survey.SourceUnavailableError{Source: "csv_url:docs.google.com", Cause: errors.New("timeout")})
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSurveyService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/survey/frequency"+tt.query, nil)
			w := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)

			if tt.expectedCode != "" {
				problem := decodeProblem(t, w.Body)
				assert.Equal(t, tt.expectedCode, problem["error_code"])
				assert.Equal(t, float64(tt.expectedStatus), problem["status"])
			}
		})
	}
}

func TestSurveyHandler_GetFrequencyBody(t *testing.T) {
	svc := new(MockSurveyService)
	svc.On("Frequency", survey.FilterCriteria{Month: "2025-03"}).Return(marchReport(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/survey/frequency?month=2025-03", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		State   string `json:"state"`
		Total   int    `json:"total"`
		Entries []struct {
			Region  string  `json:"region"`
			Count   int     `json:"count"`
			Percent float64 `json:"percent"`
		} `json:"entries"`
		Advisory struct {
			TopRegion string `json:"top_region"`
		} `json:"advisory"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body.State)
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "Mãos", body.Entries[0].Region)
	assert.Equal(t, 66.7, body.Entries[0].Percent)
	assert.Equal(t, "Mãos", body.Advisory.TopRegion)
}

func TestSurveyHandler_EmptyReportIsNotAnError(t *testing.T) {
	svc := new(MockSurveyService)
	svc.On("Frequency", survey.FilterCriteria{Month: "2023-01"}).Return(survey.Report{
		State:       survey.StateEmpty,
		EmptyReason: survey.ReasonNoMatchingRecords,
		Criteria:    survey.FilterCriteria{Month: "2023-01"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/survey/frequency?month=2023-01", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"empty_reason":"no_matching_records"`)
	assert.Contains(t, w.Body.String(), `"entries":[]`)
}

func TestSurveyHandler_Export(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		contentType string
		filename    string
		prefix      string
	}{
		{
			name:        "csv",
			path:        "/api/survey/frequency.csv?month=2025-03&sector=Lamina%C3%A7%C3%A3o",
			contentType: exporter.FormatCSV.ContentType(),
			filename:    "dor-2025-03-laminacao-20250320.csv",
			prefix:      "\ufeffParte do Corpo,Qtd,Percentual",
		},
		{
			name:        "xlsx",
			path:        "/api/survey/frequency.xlsx?month=2025-03&sector=Lamina%C3%A7%C3%A3o",
			contentType: exporter.FormatXLSX.ContentType(),
			filename:    "dor-2025-03-laminacao-20250320.xlsx",
			prefix:      "PK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSurveyService)
			svc.On("Frequency", survey.FilterCriteria{Month: "2025-03", Sector: "Laminação"}).Return(marchReport(), nil)

			w := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Header().Get("Content-Disposition"), tt.filename)
			assert.True(t, strings.HasPrefix(w.Body.String(), tt.prefix))
		})
	}
}

func TestSurveyHandler_OptionsAndDiagnostics(t *testing.T) {
	svc := new(MockSurveyService)
	svc.On("Options").Return(survey.Options{
		Months:  []string{"2025-03", "2025-02"},
		Sectors: []string{"GDR Norte", "Laminação"},
		Leaders: []string{"Carlos", "Dora"},
	}, nil)
	svc.On("Diagnostics").Return(services.DiagnosticsView{}, services.ErrNoSnapshot)

	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/survey/options", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var opts survey.Options
	require.NoError(t, json.NewDecoder(w.Body).Decode(&opts))
	assert.Equal(t, []string{"2025-03", "2025-02"}, opts.Months)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/survey/diagnostics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSurveyHandler_Refresh(t *testing.T) {
	loaded := time.Date(2025, 3, 20, 11, 0, 0, 0, time.UTC)
	entry := &cache.Entry{
		Snapshot:  &survey.Snapshot{Source: "csv_url:docs.google.com", LoadedAt: loaded, Rows: 5, Dropped: 1},
		FetchedAt: loaded,
		TTL:       10 * time.Minute,
	}

	tests := []struct {
		name           string
		key            string
		setupMock      func(*MockSurveyService)
		expectedStatus int
	}{
		{
			name:           "missing key",
			setupMock:      func(m *MockSurveyService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong key",
			key:            "guess",
			setupMock:      func(m *MockSurveyService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "refreshed",
			key:  testAdminKey,
			setupMock: func(m *MockSurveyService) {
				m.On("Refresh").Return(entry, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "no source configured",
			key:  testAdminKey,
			setupMock: func(m *MockSurveyService) {
				m.On("Refresh").Return(nil, services.ErrSourceNotConfigured)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSurveyService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/survey/refresh", nil)
			if tt.key != "" {
				req.Header.Set(middleware.AdminKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
			if w.Code == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"pinned":false`)
				assert.Contains(t, w.Body.String(), `"expires_at":"2025-03-20T11:10:00Z"`)
			}
		})
	}
}

func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestSurveyHandler_Upload(t *testing.T) {
	csvData := []byte("Carimbo de data/hora,Nome,Setor,Líder,Dor?,Local\n")
	pinned := &cache.Entry{
		Snapshot:  &survey.Snapshot{Source: "upload:respostas.csv", Rows: 1},
		FetchedAt: time.Now(),
	}

	tests := []struct {
		name           string
		field          string
		contentType    string
		setupMock      func(*MockSurveyService)
		expectedStatus int
	}{
		{
			name:  "installed",
			field: "file",
			setupMock: func(m *MockSurveyService) {
				m.On("Upload", "respostas.csv", csvData).Return(pinned, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing file field",
			field:          "planilha",
			setupMock:      func(m *MockSurveyService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "json body",
			field:          "file",
			contentType:    "application/json",
			setupMock:      func(m *MockSurveyService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:  "rejected by decoder",
			field: "file",
			setupMock: func(m *MockSurveyService) {
				m.On("Upload", "respostas.csv", csvData).Return(nil, services.ErrInvalidUpload)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "too large",
			field: "file",
			setupMock: func(m *MockSurveyService) {
				m.On("Upload", "respostas.csv", csvData).Return(nil, services.ErrUploadTooLarge)
			},
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:  "missing pain columns",
			field: "file",
			setupMock: func(m *MockSurveyService) {
				m.On("Upload", "respostas.csv", csvData).Return(nil,
					&survey.SchemaError{Role: survey.RolePainFlag, Headers: []string{"a", "b"}})
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSurveyService)
			tt.setupMock(svc)

			body, contentType := multipartUpload(t, tt.field, "respostas.csv", csvData)
			if tt.contentType != "" {
				contentType = tt.contentType
			}
			req := httptest.NewRequest(http.MethodPost, "/api/survey/upload", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set(middleware.AdminKeyHeader, testAdminKey)

			w := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
			if w.Code == http.StatusCreated {
				assert.Contains(t, w.Body.String(), `"pinned":true`)
				assert.NotContains(t, w.Body.String(), "expires_at")
			}
		})
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		criteria survey.FilterCriteria
		format   exporter.Format
		want     string
	}{
		{survey.FilterCriteria{}, exporter.FormatCSV, "dor-20250320.csv"},
		{survey.FilterCriteria{Month: "2025-02"}, exporter.FormatXLSX, "dor-2025-02-20250320.xlsx"},
		{survey.FilterCriteria{Sector: "GDR Norte / Expedição"}, exporter.FormatCSV, "dor-gdr-norte-expedicao-20250320.csv"},
		{survey.FilterCriteria{Sector: "../../etc"}, exporter.FormatCSV, "dor-etc-20250320.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exportFilename(tt.criteria, tt.format, now))
	}
}
