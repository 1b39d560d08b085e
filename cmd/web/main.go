// Command web serves the discomfort dashboard: the JSON API, the chart page,
// the exports and the snapshot WebSocket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ergopulse/internal/app"
	"ergopulse/internal/config"
	"ergopulse/pkg/contracts"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		checkOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the workplace discomfort dashboard",
		Long: `web serves the dashboard API on the configured address.

Configuration is read from --config, ERGO_CONFIG or ./config.yaml and then
overridden by ERGO_* environment variables.`,
		Version:       contracts.GetVersionString(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkOnly {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: listening on %s, source %s\n",
					cfg.Server.Addr(), cfg.Source.Kind)
				return nil
			}

			application, err := app.NewApplication(configPath)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run()
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "validate the configuration and exit")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
