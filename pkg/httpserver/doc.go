// Package httpserver runs the hub's internal HTTP API.
//
// Server wraps net/http with timeouts from Config, shutdown on context
// cancellation or SIGINT/SIGTERM, and drain funcs that flush background
// components once the listener has stopped:
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithDrain("push", pushClient.Close),
//		httpserver.WithDrain("pipeline", pipeline.Close),
//	)
//	err := srv.Run(ctx, router)
//
// Drains run in reverse registration order. LivenessHandler and
// ReadinessHandler back the /health probes; RequestID tags each request and
// RequestIDExtractor carries the id into log records.
package httpserver
