// Package siglog provides the console logging surface for the trace
// generation engine.
//
// Trace generation is a batch job: warnings (demoted out-of-range accesses)
// go to stderr and the run continues; fatal conditions (event-ID overflow,
// sink I/O failures, bad options, unknown sync codes) terminate the process
// with a diagnostic and a non-zero exit code. The package wraps a single
// zerolog console logger so every component logs with one format.
package siglog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.TimeOnly,
}).With().Timestamp().Logger()

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    true,
	}).With().Timestamp().Logger()
}

// Infof logs a progress message.
func Infof(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

// Warnf logs a recoverable condition; the run continues.
func Warnf(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

// Errorf logs an error without terminating; callers that can recover use
// this, everything else goes through Fatalf.
func Errorf(format string, args ...any) {
	logger.Error().Msgf(format, args...)
}

// Fatalf logs a diagnostic and exits with status 1. There is no recovery
// path: trace generation has no partial-success mode.
func Fatalf(format string, args ...any) {
	logger.Fatal().Msgf(format, args...)
}
