package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "ergopulse/internal/errors"
	"ergopulse/internal/exporter"
	"ergopulse/internal/middleware"
	"ergopulse/internal/services"
	"ergopulse/internal/survey"
	api "ergopulse/pkg/contracts/api/v1"
)

// uploadField is the multipart field carrying the survey file
const uploadField = "file"

// multipartOverhead leaves room for part headers on top of the file limit
const multipartOverhead = 64 << 10

// SurveyHandlerConfig configures the write endpoints
type SurveyHandlerConfig struct {
	MaxUploadBytes int64
	AdminKey       string
}

// SurveyHandler serves the survey dashboard API
type SurveyHandler struct {
	service        SurveyServiceInterface
	validator      *middleware.Validator
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
	adminKey       string
	logger         *slog.Logger
	clock          func() time.Time
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(
	service SurveyServiceInterface,
	validator *middleware.Validator,
	errorHandler *apierrors.ErrorHandler,
	cfg SurveyHandlerConfig,
	logger *slog.Logger,
) *SurveyHandler {
	if validator == nil {
		validator = middleware.NewValidator()
	}
	return &SurveyHandler{
		service:        service,
		validator:      validator,
		errorHandler:   errorHandler,
		maxUploadBytes: cfg.MaxUploadBytes,
		adminKey:       cfg.AdminKey,
		logger:         logger.With(slog.String("handler", "survey")),
		clock:          time.Now,
	}
}

// Routes returns the survey routes, mounted under /api/survey
func (h *SurveyHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/options", h.GetOptions)
		r.Get("/frequency", h.GetFrequency)
		r.Get("/diagnostics", h.GetDiagnostics)
	})

	r.Get("/frequency.csv", h.ExportFrequency(exporter.FormatCSV))
	r.Get("/frequency.xlsx", h.ExportFrequency(exporter.FormatXLSX))

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminKey(h.adminKey, h.logger))
		r.Post("/refresh", h.Refresh)
		r.With(middleware.ContentTypeValidator("multipart/form-data")).
			Post("/upload", h.Upload)
	})

	return r
}

// GetOptions handles GET /api/survey/options
func (h *SurveyHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.Options(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, options)
}

// GetFrequency handles GET /api/survey/frequency
func (h *SurveyHandler) GetFrequency(w http.ResponseWriter, r *http.Request) {
	report, ok := h.frequency(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, api.NewFrequencyResponse(report))
}

// ExportFrequency handles the CSV and XLSX downloads of the frequency table
func (h *SurveyHandler) ExportFrequency(format exporter.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := h.frequency(w, r)
		if !ok {
			return
		}

		var buf bytes.Buffer
		var err error
		switch format {
		case exporter.FormatXLSX:
			err = exporter.WriteFrequencyXLSX(&buf, report)
		default:
			err = exporter.WriteFrequencyCSV(&buf, report)
		}
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ExportFailed(string(format), err))
			return
		}

		filename := exportFilename(report.Criteria, format, h.clock())
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			h.logger.WarnContext(r.Context(), "export write failed",
				slog.String("format", string(format)),
				slog.String("error", err.Error()))
		}
	}
}

// GetDiagnostics handles GET /api/survey/diagnostics
func (h *SurveyHandler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	diag, err := h.service.Diagnostics(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, diag)
}

// Refresh handles POST /api/survey/refresh
func (h *SurveyHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Refresh(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, api.NewSnapshotResponse(entry.Snapshot, entry.ExpiresAt()))
}

// Upload handles POST /api/survey/upload
func (h *SurveyHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.UploadTooLarge(h.maxUploadBytes))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadField, "multipart file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.UploadTooLarge(h.maxUploadBytes))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidUploadWithError(err))
		return
	}

	entry, err := h.service.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.NewSnapshotResponse(entry.Snapshot, entry.ExpiresAt()))
}

// frequency validates the query and runs the pipeline. It writes the error
// response itself and reports false on failure.
func (h *SurveyHandler) frequency(w http.ResponseWriter, r *http.Request) (survey.Report, bool) {
	query := api.ParseFrequencyQuery(r.URL.Query())
	if err := h.validator.Struct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return survey.Report{}, false
	}

	report, err := h.service.Frequency(r.Context(), query.Criteria())
	if err != nil {
		h.handleServiceError(w, r, err)
		return survey.Report{}, false
	}
	return report, true
}

// handleServiceError maps dashboard sentinels to API errors; typed survey
// errors pass through to the error handler unchanged.
func (h *SurveyHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoSnapshot):
		err = apierrors.ErrNoSurveyData
	case errors.Is(err, services.ErrSourceNotConfigured):
		err = apierrors.ErrSourceNotConfigured
	case errors.Is(err, services.ErrUploadTooLarge):
		err = apierrors.UploadTooLarge(h.maxUploadBytes)
	case errors.Is(err, services.ErrInvalidUpload):
		err = apierrors.InvalidUploadWithError(err)
	case errors.Is(err, services.ErrServiceUnavailable):
		err = apierrors.ErrServiceUnavailable
	}
	h.errorHandler.HandleError(w, r, err)
}

// exportFilename names a download after its filters, e.g.
// dor-2025-03-laminacao-20250320.csv
func exportFilename(c survey.FilterCriteria, format exporter.Format, now time.Time) string {
	name := "dor"
	if c.Month != "" {
		name += "-" + c.Month
	}
	if c.Sector != "" {
		if slug := slugify(c.Sector); slug != "" {
			name += "-" + slug
		}
	}
	name += "-" + now.Format("20060102")
	return filepath.Base(name + "." + string(format))
}
