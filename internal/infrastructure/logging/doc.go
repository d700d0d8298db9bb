// Package logging provides structured logging for Pawl Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
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
// Never log session tokens, passwords, device keys or the API key.
// The one exception is the first-boot bootstrap, which surfaces the
// generated operator credentials exactly once.
package logging
