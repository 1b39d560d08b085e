// Package source acquires the raw survey table from a published CSV URL, the
// Google Sheets API, a local file or an uploaded payload.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"ergopulse/internal/survey"
)

// Kind selects a Source implementation
type Kind string

const (
	KindCSVURL Kind = "csv_url"
	KindSheets Kind = "sheets"
	KindFile   Kind = "file"
	KindNone   Kind = "none"
)

// Source fetches one raw table. Implementations must honour ctx cancellation
// and report failures as *survey.SourceUnavailableError.
type Source interface {
	Fetch(ctx context.Context) (*survey.RawTable, error)
	Name() string
}

// Options configures New
type Options struct {
	Kind            Kind
	URL             string
	SpreadsheetID   string
	Range           string
	CredentialsFile string
	APIKey          string
	Path            string
	MaxBytes        int64
	HTTPClient      *http.Client
}

// New builds the Source selected by opts.Kind. KindNone returns a nil Source
// so the dashboard only serves uploaded data.
func New(opts Options, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch opts.Kind {
	case KindCSVURL:
		if opts.URL == "" {
			return nil, fmt.Errorf("source kind %s requires a url", opts.Kind)
		}
		return NewHTTPSource(opts.URL, opts.HTTPClient, opts.MaxBytes, logger), nil
	case KindSheets:
		if opts.SpreadsheetID == "" {
			return nil, fmt.Errorf("source kind %s requires a spreadsheet id", opts.Kind)
		}
		return NewSheetsSource(SheetsOptions{
			SpreadsheetID:   opts.SpreadsheetID,
			Range:           opts.Range,
			CredentialsFile: opts.CredentialsFile,
			APIKey:          opts.APIKey,
			HTTPClient:      opts.HTTPClient,
		}, logger), nil
	case KindFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("source kind %s requires a path", opts.Kind)
		}
		return NewFileSource(opts.Path, opts.MaxBytes, logger), nil
	case KindNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", opts.Kind)
	}
}

func unavailable(name string, err error) error {
	return &survey.SourceUnavailableError{Source: name, Cause: err}
}
