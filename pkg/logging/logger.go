package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv overrides the configured log level when set.
const LevelEnv = "EMU2_LOG_LEVEL"

// InitLogger installs a console logger tagged with app as the global logger.
func InitLogger(app, level string) zerolog.Logger {
	return initLogger(os.Stdout, app, level)
}

func initLogger(out io.Writer, app, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).
		Level(ParseLevel(level)).
		With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// ParseLevel resolves the effective level. The environment wins over level,
// and anything unparseable falls back to info.
func ParseLevel(level string) zerolog.Level {
	if env := os.Getenv(LevelEnv); env != "" {
		level = env
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
