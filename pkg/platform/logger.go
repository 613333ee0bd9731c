package platform

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger for console output on
// stderr. Unknown levels fall back to info.
func InitLogger(level string) zerolog.Logger {
	return initLogger(os.Stderr, level)
}

func initLogger(w io.Writer, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
	return log.Logger
}

var exit = os.Exit

// LogFatal logs err and exits with status 1
func LogFatal(msg string, err error) {
	log.Error().Err(err).Msg(msg)
	exit(1)
}
