// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// The supervisor emits one line per stage transition (start attempted,
// ready, running, exited, failed) and forwards captured child process
// output through the same logger, so a single stream is sufficient to
// diagnose which stage broke.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Stage ready", zap.String("stage", "display"))
//	logger.WithStage("vnc").Warn("Slow readiness probe")
package logging
