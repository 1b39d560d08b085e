package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ergopulse/internal/exporter"
	"ergopulse/internal/middleware"
	"ergopulse/internal/survey"
	api "ergopulse/pkg/contracts/api/v1"
)

// emptyMessages explain an empty report on the terminal
var emptyMessages = map[string]string{
	survey.ReasonNoMatchingRecords:      "Nenhum registro encontrado para os filtros selecionados.",
	survey.ReasonNoAffirmativeResponses: "Nenhum colaborador relatou dor com os filtros selecionados.",
}

type runOptions struct {
	month   string
	sector  string
	leaders []string
	format  string
	out     string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Print the pain region frequency table",
		Long: `Filter the survey by month, sector and leaders and count the reported
body regions.

"all" or "todos" select every value. --leader repeats:

  painreport run -s respostas.csv --month 2025-03 --leader Carlos --leader Dora`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.month, "month", "m", "", "month bucket YYYY-MM")
	cmd.Flags().StringVar(&opts.sector, "sector", "", "sector name")
	cmd.Flags().StringArrayVarP(&opts.leaders, "leader", "l", nil, "leader name (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table, json, csv or xlsx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write to this file instead of stdout")

	return cmd
}

func runReport(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	query := api.FrequencyQuery{Month: opts.month, Sector: opts.sector}
	for _, leader := range opts.leaders {
		if leader != "" {
			query.Leaders = append(query.Leaders, leader)
		}
	}
	if err := middleware.NewValidator().Struct(query); err != nil {
		return fmt.Errorf("invalid filters: %w", err)
	}

	switch opts.format {
	case "table", "json", "csv", "xlsx":
	default:
		return fmt.Errorf("unsupported format %q", opts.format)
	}
	if opts.format == "xlsx" && opts.out == "" {
		return fmt.Errorf("xlsx output requires --out")
	}

	svc, err := global.dashboard()
	if err != nil {
		return err
	}
	report, err := svc.Frequency(cmd.Context(), query.Criteria())
	if err != nil {
		return err
	}

	write := func(w io.Writer) error {
		switch opts.format {
		case "json":
			return writeJSON(w, api.NewFrequencyResponse(report))
		case "csv":
			return exporter.WriteFrequencyCSV(w, report)
		case "xlsx":
			return exporter.WriteFrequencyXLSX(w, report)
		default:
			return writeTable(w, report)
		}
	}

	if opts.out == "" {
		return write(cmd.OutOrStdout())
	}
	if err := exporter.WriteFile(opts.out, write); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", opts.out)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable prints the summary line and an aligned frequency table
func writeTable(w io.Writer, report survey.Report) error {
	fmt.Fprintf(w, "Mês: %s | Setor: %s\n", orAll(report.Criteria.Month), orAll(report.Criteria.Sector))
	fmt.Fprintf(w, "Registros: %d | Relatos de dor: %d (%.1f%%)\n\n",
		report.Summary.Filtered, report.Summary.Affirmative, report.Summary.AffirmativeRate*100)

	if report.Empty() {
		msg, ok := emptyMessages[report.EmptyReason]
		if !ok {
			msg = "Sem dados para exibir."
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Parte do Corpo\tQtd\tPercentual\t")
	for _, row := range exporter.FrequencyRecords(report.Frequency) {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t\n", row[0], row[1], row[2])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if report.Advisory != nil {
		fmt.Fprintf(w, "\nRegião mais citada: %s (%d)\n", report.Advisory.TopRegion, report.Advisory.TopCount)
	}
	return nil
}

func orAll(s string) string {
	if s == "" {
		return "Todos"
	}
	return s
}
