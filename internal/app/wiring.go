package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"ergopulse/internal/config"
	"ergopulse/internal/source"
	"ergopulse/internal/survey"
)

// NewPipeline builds the survey pipeline from the pipeline section
func NewPipeline(cfg config.PipelineConfig, logger *slog.Logger) (*survey.Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline timezone %q: %w", cfg.Timezone, err)
	}

	pc := survey.DefaultConfig()
	pc.Location = loc
	pc.NullTokens = cfg.NullTokens
	pc.DateLayouts = cfg.DateLayouts
	pc.SectorAliases = cfg.SectorAliases
	pc.RegionAliases = cfg.RegionAliases
	pc.Acronyms = cfg.Acronyms
	if cfg.AffirmativeToken != "" {
		pc.AffirmativeToken = cfg.AffirmativeToken
	}
	if cfg.Delimiter != "" {
		pc.Delimiter = cfg.Delimiter
	}
	if cfg.PainFlagPosition > 0 {
		pc.PainFlagPosition = cfg.PainFlagPosition
	}
	if cfg.PainLocationPosition > 0 {
		pc.PainLocationPosition = cfg.PainLocationPosition
	}

	return survey.NewPipeline(pc, logger), nil
}

// NewSource builds the configured survey source. Kind "none" yields a nil
// Source: the dashboard then serves uploads only.
func NewSource(cfg config.SourceConfig, logger *slog.Logger) (source.Source, error) {
	opts := source.Options{
		Kind:            source.Kind(cfg.Kind),
		URL:             cfg.URL,
		SpreadsheetID:   cfg.SpreadsheetID,
		Range:           cfg.Range,
		CredentialsFile: cfg.CredentialsFile,
		APIKey:          cfg.APIKey,
		Path:            cfg.Path,
		MaxBytes:        cfg.MaxUploadBytes,
	}
	// the Sheets client carries its own authenticated transport
	if opts.Kind == source.KindCSVURL {
		opts.HTTPClient = &http.Client{Timeout: cfg.FetchTimeout}
	}

	src, err := source.New(opts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create survey source: %w", err)
	}
	return src, nil
}
