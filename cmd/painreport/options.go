package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newOptionsCmd(global *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the months, sectors and leaders available as filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := global.dashboard()
			if err != nil {
				return err
			}
			options, err := svc.Options(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), options)
			}

			w := cmd.OutOrStdout()
			writeList(w, "Meses", options.Months)
			writeList(w, "Setores", options.Sectors)
			writeList(w, "Líderes", options.Leaders)
			for _, warning := range options.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newDiagnoseCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Show how the survey columns were interpreted",
		Long: `Print the resolved schema, dropped rows and the distinct raw answers of
the pain columns as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := global.dashboard()
			if err != nil {
				return err
			}
			diag, err := svc.Diagnostics(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), diag)
		},
	}
}

func writeList(w io.Writer, title string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(w, "%s: -\n", title)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", title, strings.Join(values, ", "))
}
