// Package logging provides structured logging for garagedoor.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default fields service and version on every entry.
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connecting", "broker", "io.adafruit.com:8883")
//
// Never log the account secret or the PKCS#12 password.
//
// This is the operator log. The user-facing diagnostic log shown in the
// status surface is garage.LogBuffer.
package logging
