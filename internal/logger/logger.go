package logger

import (
	"io"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Config struct {
	Service string
	Version string
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Output defaults to os.Stderr
	Output io.Writer
}

// New creates a new structured logger using go-kit/log
func New(config Config) kitlog.Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	// logfmt is human readable and easy to parse by log aggregators
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(out))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	logger = kitlog.With(logger, "caller", kitlog.DefaultCaller)
	logger = kitlog.With(logger, "service", config.Service, "version", config.Version)
	return level.NewFilter(logger, LevelOption(config.Level))
}

// LevelOption maps a textual level to a go-kit level filter option
func LevelOption(l string) level.Option {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
