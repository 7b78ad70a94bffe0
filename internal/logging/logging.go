// Package logging configures the global zerolog logger.
package logging

import (
	stdlog "log"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the log level and output format ("json" or console) of the
// global logger and routes the standard library logger through it.
func Init(level, format string) {
	var llog zerolog.Logger

	switch format {
	case "json":
		llog = zerolog.New(os.Stderr)
	default:
		console := outputIsConsole()
		tformat := time.RFC3339
		if console {
			tformat = time.TimeOnly
		}
		llog = zerolog.New(zerolog.ConsoleWriter{ //nolint:exhaustruct
			Out:        os.Stderr,
			NoColor:    !console,
			TimeFormat: tformat,
		})
	}

	if l, err := zerolog.ParseLevel(level); err == nil && level != "" {
		zerolog.SetGlobalLevel(l)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = llog.With().Timestamp().Logger()

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

func outputIsConsole() bool {
	fileInfo, _ := os.Stderr.Stat()

	return fileInfo != nil && (fileInfo.Mode()&os.ModeCharDevice) != 0
}
