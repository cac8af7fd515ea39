package jsonapikit

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

// Logger receives structured debug output as alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DebugConfig selects what the client logs once debugging is enabled.
type DebugConfig struct {
	Enabled     bool
	LogRequests bool
	LogBodies   bool
	LogDecode   bool
	// RequestIDGen stamps each request; the ID is attached to log lines and errors.
	RequestIDGen func() string
}

// DefaultDebugConfig logs requests and decode failures but not bodies.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogBodies:    false,
		LogDecode:    true,
		RequestIDGen: DefaultRequestIDGenerator,
	}
}

// DefaultRequestIDGenerator returns a random UUID.
func DefaultRequestIDGenerator() string {
	return uuid.NewString()
}

type zerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger adapts a zerolog.Logger.
func NewZerologLogger(log zerolog.Logger) Logger {
	return &zerologLogger{log: log}
}

// NewSimpleLogger writes human-readable lines to stderr.
func NewSimpleLogger() Logger {
	return NewWriterLogger(os.Stderr)
}

// NewWriterLogger writes human-readable lines to w.
func NewWriterLogger(w io.Writer) Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return NewZerologLogger(zerolog.New(out).With().Timestamp().Str("component", "jsonapikit").Logger())
}

func (l *zerologLogger) Debug(msg string, kv ...interface{}) {
	l.log.Debug().Fields(kv).Msg(msg)
}

func (l *zerologLogger) Info(msg string, kv ...interface{}) {
	l.log.Info().Fields(kv).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, kv ...interface{}) {
	l.log.Warn().Fields(kv).Msg(msg)
}

func (l *zerologLogger) Error(msg string, kv ...interface{}) {
	l.log.Error().Fields(kv).Msg(msg)
}

type zapLogger struct {
	log *zap.SugaredLogger
}

// NewZapLogger adapts a zap.Logger.
func NewZapLogger(log *zap.Logger) Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &zapLogger{log: log.Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...interface{}) { l.log.Debugw(msg, kv...) }

func (l *zapLogger) Info(msg string, kv ...interface{}) { l.log.Infow(msg, kv...) }

func (l *zapLogger) Warn(msg string, kv ...interface{}) { l.log.Warnw(msg, kv...) }

func (l *zapLogger) Error(msg string, kv ...interface{}) { l.log.Errorw(msg, kv...) }
