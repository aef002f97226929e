package testutil

import "log/slog"

// DiscardLogger returns a logger that drops every record.
//
// Tests pass it to components that log on expected failure paths so test
// output stays readable.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
