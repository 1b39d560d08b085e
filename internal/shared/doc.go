// Package shared holds helpers used by more than one package of the
// dashboard and that belong to no single layer.
//
// The testutil subpackage records slog output so tests can assert on what
// the services and the survey pipeline logged:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc := services.NewDashboardService(cfg, logger)
//	...
//	logs.AssertLogged(t, slog.LevelWarn, "upload rejected")
//	logs.AssertAttr(t, "file", "respostas.csv")
package shared
