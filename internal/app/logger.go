package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/areyabhishek/todo1/internal/config"
)

// NewLogger builds the application logger for env, writing to stdout.
// Local runs get a human-readable console writer and trace level.
func NewLogger(env string) (zerolog.Logger, error) {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, out io.Writer) (zerolog.Logger, error) {
	w := out
	var level zerolog.Level
	switch env {
	case config.EnvDev:
		level = zerolog.DebugLevel
	case config.EnvProd:
		level = zerolog.InfoLevel
	case config.EnvLocal:
		level = zerolog.TraceLevel

		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.TimeFormat = time.DateTime
		consoleWriter.Out = out
		w = consoleWriter
	default:
		return zerolog.Nop(), fmt.Errorf("unknown env: %s", env)
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Caller().
		Int("pid", os.Getpid()).
		Logger(), nil
}
