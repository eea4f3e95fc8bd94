// Package logger builds the hub's *slog.Logger and names the attributes its
// components log with.
//
// New takes functional options; NewFromConfig reads them from Config
// (LOG_SERVICE, APP_ENV, LOG_LEVEL, LOG_FORMAT). Production logs JSON at
// info level, other environments log text at debug level.
//
//	log := logger.NewFromConfig(cfg.Log,
//		logger.WithContextExtractors(httpserver.RequestIDExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// Components log through LogAttrs with the helpers from attr.go so keys stay
// consistent across packages:
//
//	log.LogAttrs(ctx, slog.LevelWarn, "push batch rejected",
//		logger.BatchSize(len(bodies)),
//		logger.StatusCode(resp.StatusCode),
//	)
//
// Error and Errors yield an empty attribute for nil errors, so callers can
// pass them unconditionally.
package logger
