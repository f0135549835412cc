// Package logging wraps zerolog with the small surface this repo uses.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Logger wraps zerolog with service-scoped fields.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Service   string
	Output    io.Writer
	PrettyLog bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig(service string) *Config {
	return &Config{
		Level:     LevelInfo,
		Service:   service,
		Output:    os.Stdout,
		PrettyLog: os.Getenv("ENVIRONMENT") == "development",
	}
}

// NewLogger creates a new structured logger
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig("unknown")
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer = config.Output
	if output == nil {
		output = os.Stdout
	}
	if config.PrettyLog {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05.000",
		}
	}

	logger := zerolog.New(output).
		Level(parseLevel(config.Level)).
		With().
		Timestamp().
		Str("service", config.Service).
		Logger()

	return &Logger{
		logger:  logger,
		service: config.Service,
	}
}

// Nop returns a logger that discards everything, for tests.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger:  l.logger.With().Interface(key, value).Logger(),
		service: l.service,
	}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{
		logger:  l.logger.With().Fields(fields).Logger(),
		service: l.service,
	}
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{
		logger:  l.logger.With().Err(err).Logger(),
		service: l.service,
	}
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.logger.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.logger.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }
func (l *Logger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

func parseLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
