package output

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger points the global logger at stderr. Only warnings and errors
// are shown unless debug is set, so the live display stays readable.
func InitLogger(debug bool) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	SetLogOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
}

// InitFileLogger writes JSON logs at debug level to path. The returned
// closer must be called before exit.
func InitFileLogger(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	SetLogOutput(f)
	return f, nil
}

func SetLogOutput(w io.Writer) {
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
