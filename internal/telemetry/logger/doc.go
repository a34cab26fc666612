// Package logger provides structured logging for the Mulligan client.
//
// It wraps log/slog:
//
//   - logger.go: handler selection, level control, package-level helpers
//   - context.go: context propagation of the logger and request IDs
//   - redact.go: masking of tokens, passwords and Authorization headers
//
// The CLI writes logs to stderr so that command output on stdout stays
// machine readable.
package logger
