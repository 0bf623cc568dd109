// Package logging provides structured logging for the Yeelight client.
//
// This package wraps zap logger with convenience functions for common
// logging patterns used throughout the module. It provides both general
// logging functions and specialized functions for protocol-specific logging.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (wire frames, discovery replies)
//   - Info: Normal operations (connections, discovery results)
//   - Warn: Non-fatal issues (command timeouts, dropped notifications)
//   - Error: Fatal issues (startup failures)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Bulb connected",
//	    zap.String("remote_addr", "192.168.1.239:55443"),
//	    zap.String("id", "0x000000000015243f"),
//	)
//
// # Configuration
//
// CLI commands are silent by default. Logging switches on via the
// YEELIGHT_LOG_LEVEL environment variable or an explicit level:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
