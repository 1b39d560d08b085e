package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"ergopulse/internal/survey"
)

const (
	frequencySheet = "Frequência"
	filtersSheet   = "Filtros"
)

// FrequencyHeaders are the column titles of an exported frequency table
var FrequencyHeaders = []string{"Parte do Corpo", "Qtd", "Percentual"}

// FrequencyRecords renders the entries of result as table rows. The
// percentage is each region's share of all counted tokens.
func FrequencyRecords(result survey.FrequencyResult) [][]string {
	total := result.Total()
	records := make([][]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		records = append(records, []string{e.Region, formatInt(e.Count), formatPercent(e.Count, total)})
	}
	return records
}

// WriteFrequencyCSV writes the report's frequency table as BOM-prefixed CSV.
// An empty report produces the header row only.
func WriteFrequencyCSV(w io.Writer, report survey.Report) error {
	return WriteCSV(w, WriteOptions{
		Headers:   FrequencyHeaders,
		Records:   FrequencyRecords(report.Frequency),
		BOMPrefix: true,
	})
}

// WriteFrequencyXLSX writes the report as a workbook with the frequency
// table, a column chart when there is data, and the applied filters.
func WriteFrequencyXLSX(w io.Writer, report survey.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", frequencySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(frequencySheet, "A1", &FrequencyHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(frequencySheet, "A1", "C1", header); err != nil {
		return fmt.Errorf("failed to style headers: %w", err)
	}

	total := report.Frequency.Total()
	for i, e := range report.Frequency.Entries {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		share := 0.0
		if total > 0 {
			share = float64(e.Count) / float64(total)
		}
		row := []interface{}{e.Region, e.Count, share}
		if err := f.SetSheetRow(frequencySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if n := len(report.Frequency.Entries); n > 0 {
		percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
		if err != nil {
			return fmt.Errorf("failed to create percent style: %w", err)
		}
		last := fmt.Sprintf("C%d", n+1)
		if err := f.SetCellStyle(frequencySheet, "C2", last, percent); err != nil {
			return fmt.Errorf("failed to style percentages: %w", err)
		}
		if err := addFrequencyChart(f, n); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(frequencySheet, "A", "A", 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := writeFilters(f, report); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func addFrequencyChart(f *excelize.File, rows int) error {
	ref := func(col string) string {
		return fmt.Sprintf("'%s'!$%s$2:$%s$%d", frequencySheet, col, col, rows+1)
	}
	err := f.AddChart(frequencySheet, "E2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", frequencySheet),
			Categories: ref("A"),
			Values:     ref("B"),
		}},
		Title:  []excelize.RichTextRun{{Text: "Frequência de Dores por Região do Corpo"}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
	if err != nil {
		return fmt.Errorf("failed to add chart: %w", err)
	}
	return nil
}

func writeFilters(f *excelize.File, report survey.Report) error {
	if _, err := f.NewSheet(filtersSheet); err != nil {
		return fmt.Errorf("failed to create filters sheet: %w", err)
	}

	orAll := func(s string) string {
		if s == "" {
			return "Todos"
		}
		return s
	}
	rows := [][]interface{}{
		{"Mês", orAll(report.Criteria.Month)},
		{"Setor", orAll(report.Criteria.Sector)},
		{"Líderes", orAll(strings.Join(report.Criteria.Leaders, ", "))},
		{"Registros filtrados", report.Summary.Filtered},
		{"Respostas SIM", report.Summary.Affirmative},
		{"Estado", string(report.State)},
	}
	if report.EmptyReason != "" {
		rows = append(rows, []interface{}{"Motivo", report.EmptyReason})
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(filtersSheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write filters: %w", err)
		}
	}
	return f.SetColWidth(filtersSheet, "A", "A", 22)
}
