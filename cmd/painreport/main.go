// Command painreport computes the pain region frequency of a survey export
// from the command line.
//
//	painreport run --source respostas.csv --month 2025-03 --sector Laminação
//	painreport run --source "https://docs.google.com/.../pub?output=csv" --format xlsx --out dor.xlsx
//	painreport options --source respostas.xlsx
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ergopulse/internal/app"
	"ergopulse/internal/config"
	"ergopulse/internal/infrastructure"
	"ergopulse/internal/services"
	"ergopulse/pkg/contracts"
)

// globalOptions are shared by every subcommand
type globalOptions struct {
	configPath string
	source     string
	logLevel   string
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "painreport",
		Short: "Workplace discomfort survey report",
		Long: `painreport loads a discomfort survey export (CSV or XLSX, optionally
gzip, bzip2 or xz compressed, a published CSV URL or a Google Sheet) and
prints how often each body region was reported.

The survey source comes from --source or from the dashboard configuration
(config.yaml and ERGO_* environment variables).`,
		Version:       contracts.GetVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = infrastructure.NewConsoleLogger(cmd.ErrOrStderr(), opts.logLevel)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().StringVarP(&opts.source, "source", "s", "", "survey file path or published CSV URL")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newOptionsCmd(opts))
	rootCmd.AddCommand(newDiagnoseCmd(opts))

	return rootCmd
}

// dashboard builds a DashboardService over the configured or flagged source
func (o *globalOptions) dashboard() (*services.DashboardService, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.source != "" {
		cfg.Source.Kind, cfg.Source.URL, cfg.Source.Path = sourceFromFlag(o.source)
	}
	if cfg.Source.Kind == "none" {
		return nil, fmt.Errorf("no survey source: pass --source or set ERGO_SOURCE_KIND")
	}

	pipeline, err := app.NewPipeline(cfg.Pipeline, o.logger)
	if err != nil {
		return nil, err
	}
	src, err := app.NewSource(cfg.Source, o.logger)
	if err != nil {
		return nil, err
	}

	return services.NewDashboardService(services.DashboardConfig{
		Pipeline:       pipeline,
		Source:         src,
		CacheTTL:       cfg.Source.CacheTTL,
		FetchTimeout:   cfg.Source.FetchTimeout,
		MaxUploadBytes: cfg.Source.MaxUploadBytes,
	}, o.logger), nil
}

// sourceFromFlag reads http(s) URLs as published CSV and anything else as a
// local file
func sourceFromFlag(s string) (kind, url, path string) {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return "csv_url", s, ""
	}
	return "file", "", s
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
