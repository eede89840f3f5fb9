package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/artpar/qrng/config"
	"github.com/rs/zerolog"
)

// NewLogger builds the process logger from the logging section and sets the
// global level. A nil writer means stdout.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	SetLogLevel(cfg.Level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

// SetLogLevel applies level globally. Unknown levels fall back to info.
func SetLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl
}
