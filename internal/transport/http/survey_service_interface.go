package http

import (
	"context"

	"ergopulse/internal/cache"
	"ergopulse/internal/services"
	"ergopulse/internal/survey"
)

// SurveyServiceInterface defines the dashboard operations used by the handlers
type SurveyServiceInterface interface {
	Options(ctx context.Context) (survey.Options, error)
	Frequency(ctx context.Context, criteria survey.FilterCriteria) (survey.Report, error)
	Diagnostics(ctx context.Context) (services.DiagnosticsView, error)

	// Snapshot management
	Refresh(ctx context.Context) (*cache.Entry, error)
	Upload(ctx context.Context, name string, data []byte) (*cache.Entry, error)
}

var _ SurveyServiceInterface = (*services.DashboardService)(nil)
