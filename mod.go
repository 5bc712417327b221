// Package bottlerocket holds the settings data store of the operating system
// and the ambient tooling shared by its packages.
//
// The level of the global logger is read from the LLVL environment variable.
// Accepted values are trace, debug, info, warn and error. It defaults to info.
package bottlerocket

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable that defines the level
// of the global logger.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.InfoLevel

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(ParseLogLevel(os.Getenv(EnvLogLevel)))

// PromCollectors exposes Prometheus collectors created by the packages. A
// command registers them when it exposes metrics.
var PromCollectors []prometheus.Collector

// ParseLogLevel returns the logger level matching the string, or the default
// level when it is empty or unknown.
func ParseLogLevel(lvl string) zerolog.Level {
	switch lvl {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return defaultLevel
	}
}
