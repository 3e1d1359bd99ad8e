// Package logging provides structured logging for assetsync.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same shape.
//
// # Features
//
//   - JSON output for production, text output for development
//   - Default fields (service, version) on all log entries
//   - trace_id/span_id fields when the context carries an OpenTelemetry span
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Security
//
// Never log registry passwords, bearer tokens or board API keys.
package logging
