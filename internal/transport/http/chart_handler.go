package http

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	apierrors "ergopulse/internal/errors"
	"ergopulse/internal/middleware"
	"ergopulse/internal/survey"
	api "ergopulse/pkg/contracts/api/v1"
)

// chartAssetsHost serves the echarts scripts; it must stay within the CSP
var chartAssetsHost = middleware.ChartAssetsHost + "/go-echarts-assets/assets/"

// Messages shown instead of a chart
var emptyMessages = map[string]string{
	survey.ReasonNoMatchingRecords:      "Nenhum registro encontrado para os filtros selecionados.",
	survey.ReasonNoAffirmativeResponses: "Nenhum colaborador relatou dor com os filtros selecionados.",
}

// ChartHandler renders the frequency bar chart page
type ChartHandler struct {
	survey *SurveyHandler
	logger *slog.Logger
}

// NewChartHandler creates a chart handler sharing the survey handler's
// query validation and error mapping
func NewChartHandler(survey *SurveyHandler, logger *slog.Logger) *ChartHandler {
	return &ChartHandler{
		survey: survey,
		logger: logger.With(slog.String("handler", "chart")),
	}
}

// ServeHTTP handles GET /chart
func (h *ChartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, ok := h.survey.frequency(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if report.Empty() {
		writeEmptyPage(&buf, report)
	} else if err := frequencyPage(report).Render(&buf); err != nil {
		h.survey.errorHandler.HandleError(w, r, apierrors.ExportFailed("chart", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "chart write failed", slog.String("error", err.Error()))
	}
}

func frequencyPage(report survey.Report) *components.Page {
	total := report.Frequency.Total()
	regions := make([]string, 0, len(report.Frequency.Entries))
	counts := make([]opts.BarData, 0, len(report.Frequency.Entries))
	for _, e := range report.Frequency.Entries {
		regions = append(regions, e.Region)
		counts = append(counts, opts.BarData{
			Name:  fmt.Sprintf("%s (%.1f%%)", e.Region, api.Percent(e.Count, total)),
			Value: e.Count,
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Frequência de dor por parte do corpo",
			Width:      "100%",
			Height:     "600px",
			AssetsHost: chartAssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Frequência de dor por parte do corpo",
			Subtitle: chartSubtitle(report),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Parte do corpo"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Qtd"}),
	)
	bar.SetXAxis(regions).
		AddSeries("Qtd", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(chartAssetsHost)
	page.AddCharts(bar)
	return page
}

func chartSubtitle(report survey.Report) string {
	parts := []string{
		"Mês: " + orAll(report.Criteria.Month),
		"Setor: " + orAll(report.Criteria.Sector),
	}
	if len(report.Criteria.Leaders) > 0 {
		parts = append(parts, "Líderes: "+strings.Join(report.Criteria.Leaders, ", "))
	}
	parts = append(parts, fmt.Sprintf("Relatos: %d de %d", report.Summary.Affirmative, report.Summary.Filtered))
	return strings.Join(parts, " | ")
}

func writeEmptyPage(buf *bytes.Buffer, report survey.Report) {
	msg, ok := emptyMessages[report.EmptyReason]
	if !ok {
		msg = "Sem dados para exibir."
	}
	fmt.Fprintf(buf, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Frequência de dor</title></head>"+
		"<body><p class=\"empty\" data-reason=\"%s\">%s</p><p>%s</p></body></html>\n",
		html.EscapeString(report.EmptyReason), html.EscapeString(msg), html.EscapeString(chartSubtitle(report)))
}

func orAll(s string) string {
	if s == "" {
		return "Todos"
	}
	return s
}

// slugify keeps ASCII letters and digits of the folded value, joined by dashes
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range survey.Fold(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
