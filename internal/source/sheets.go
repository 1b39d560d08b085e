package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ergopulse/internal/survey"
	"ergopulse/pkg/contracts"
)

// DefaultSheetRange reads every column of the first sheet
const DefaultSheetRange = "A:Z"

// SheetsOptions configures a SheetsSource
type SheetsOptions struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
	APIKey          string
	Endpoint        string
	HTTPClient      *http.Client
}

// SheetsSource reads a value range through the Google Sheets API. The
// service client is created lazily on first fetch.
type SheetsSource struct {
	opts   SheetsOptions
	logger *slog.Logger

	once    sync.Once
	service *sheets.Service
	initErr error
}

// NewSheetsSource creates a SheetsSource
func NewSheetsSource(opts SheetsOptions, logger *slog.Logger) *SheetsSource {
	if opts.Range == "" {
		opts.Range = DefaultSheetRange
	}
	return &SheetsSource{
		opts:   opts,
		logger: logger.With(slog.String("component", "sheets_source")),
	}
}

// Name identifies the spreadsheet
func (s *SheetsSource) Name() string {
	return "sheets:" + s.opts.SpreadsheetID
}

func (s *SheetsSource) clientOptions() []option.ClientOption {
	opts := []option.ClientOption{option.WithUserAgent(contracts.UserAgent())}
	switch {
	case s.opts.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(s.opts.CredentialsFile))
	case s.opts.APIKey != "":
		opts = append(opts, option.WithAPIKey(s.opts.APIKey))
	default:
		opts = append(opts, option.WithoutAuthentication())
	}
	if s.opts.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.opts.Endpoint))
	}
	if s.opts.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(s.opts.HTTPClient))
	}
	return opts
}

// Fetch reads the configured range as formatted values
func (s *SheetsSource) Fetch(ctx context.Context) (*survey.RawTable, error) {
	s.once.Do(func() {
		// the service outlives this request, so it must not inherit ctx
		s.service, s.initErr = sheets.NewService(context.Background(), s.clientOptions()...)
		if s.initErr != nil {
			s.logger.Error("failed to create sheets service", slog.String("error", s.initErr.Error()))
		}
	})
	if s.initErr != nil {
		return nil, unavailable(s.Name(), fmt.Errorf("failed to create sheets service: %w", s.initErr))
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.opts.SpreadsheetID, s.opts.Range).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, unavailable(s.Name(), fmt.Errorf("failed to read from sheets: %w", err))
	}

	table, err := FromValues(resp.Values)
	if err != nil {
		return nil, unavailable(s.Name(), err)
	}
	table.Source = s.Name()

	s.logger.InfoContext(ctx, "sheet range fetched",
		slog.String("range", resp.Range),
		slog.Int("rows", table.Len()))
	return table, nil
}
