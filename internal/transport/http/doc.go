// Package http implements the HTTP handlers of the survey dashboard.
//
// Handlers stay thin: they parse and validate the request, call the
// dashboard service and render the result. Every failure is written as an
// RFC 7807 problem through errors.ErrorHandler, so clients see the same
// shape whether a query parameter was rejected or the survey source was
// unreachable.
//
// # Routes
//
//	GET  /api/survey/options          months, sectors and leaders for the selectors
//	GET  /api/survey/frequency        pain region frequency as JSON
//	GET  /api/survey/frequency.csv    the same table as BOM-prefixed CSV
//	GET  /api/survey/frequency.xlsx   the same table as a workbook with a chart
//	GET  /api/survey/diagnostics      schema, dropped rows and cache state
//	POST /api/survey/refresh          refetch the configured source
//	POST /api/survey/upload           replace the snapshot with a multipart file
//	GET  /chart                       bar chart page for the current filters
//
// Frequency endpoints and the chart page share one query string:
//
//	?month=2025-03&sector=Laminação&leader=Carlos&leader=Dora
//
// "all" and "todos" select every value. An empty result is returned with
// state "empty" and a reason, never as an error.
package http
