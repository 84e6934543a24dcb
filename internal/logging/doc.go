// Package logging provides structured logging for the starline tools.
//
// This package wraps a zap logger with convenience functions for common logging
// patterns used throughout the codec, the bridge server and the CLI.
//
// # Log Levels
//
//   - Debug: Individual edges, skipped keystore entries, per-frame details
//   - Info: Decoded codes, connections, loaded files
//   - Warn: Suspicious input that was accepted anyway (e.g. a foreign Bit field)
//   - Error: Failures that abort an operation
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given the STARLINE_LOG_LEVEL environment variable is used.
// With neither set the logger is a no-op so CLI output stays clean.
//
// Logs go to stderr in console format so they never mix with record or RAW
// output written to stdout.
package logging
