// Package objdb defines the global logger and the metric collectors shared by
// the packages of the object database.
//
// The level of the logger is read from the LLVL environment variable and can
// be one of: trace, debug, info, warn, error, fatal, panic, none. It defaults
// to the error level.
package objdb

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.ErrorLevel

var logout = zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance. By default, it only prints
// error level messages but it can be changed through the environment variable
// or SetLevel.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(ParseLevel(os.Getenv(EnvLogLevel)))

// PromCollectors exposes the Prometheus collectors created by the packages.
// A service can register them on its own registry.
var PromCollectors []prometheus.Collector

// ParseLevel returns the zerolog level of the given name, or the default level
// when the name is empty or unknown.
func ParseLevel(name string) zerolog.Level {
	if name == "none" {
		return zerolog.Disabled
	}

	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return defaultLevel
	}

	return lvl
}

// SetLevel changes the level of the global logger.
func SetLevel(name string) {
	Logger = Logger.Level(ParseLevel(name))
}
