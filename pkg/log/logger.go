package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// SetupLogger installs a JSON log/slog backend on stdout as the process-wide
// provider, formatted for Cloud Logging. It replaces the default zerolog
// provider.
func SetupLogger(loglevel string) {
	SetProvider(NewSlogProvider(os.Stdout, ToLogLevel(loglevel)))
}

// ToLogLevel parses "debug", "info", "warn" or "error".
func ToLogLevel(level string) Level {
	switch level {
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// SlogProvider hands out loggers backed by one slog handler chain.
type SlogProvider struct {
	level   *slog.LevelVar
	handler slog.Handler
}

// NewSlogProvider builds a JSON slog provider whose records carry the
// cockroachdb stack trace of any attached error.
func NewSlogProvider(w io.Writer, level Level) *SlogProvider {
	lv := new(slog.LevelVar)
	lv.Set(slog.Level(level))
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     lv,
		// Replace attributes to convert to CloudLogging format.
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{Key: "severity", Value: attr.Value}
			case slog.MessageKey:
				attr = slog.Attr{Key: "message", Value: attr.Value}
			case slog.SourceKey:
				attr = slog.Attr{Key: "logging.googleapis.com/sourceLocation", Value: attr.Value}
			}
			return attr
		},
	}
	return &SlogProvider{
		level:   lv,
		handler: WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops)),
	}
}

// GetLogger implements LoggerProvider.
func (p *SlogProvider) GetLogger() Logger {
	return &SlogLogger{logger: slog.New(p.handler)}
}

// GetLoggerWithName implements LoggerProvider.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return &SlogLogger{logger: slog.New(p.handler).With(ComponentKey, name)}
}

// SetLevel implements LoggerProvider.
func (p *SlogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

// SlogLogger adapts *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// Debug implements Logger.
func (s *SlogLogger) Debug(msg string, fields ...any) { s.logger.Debug(msg, fields...) }

// Info implements Logger.
func (s *SlogLogger) Info(msg string, fields ...any) { s.logger.Info(msg, fields...) }

// Warn implements Logger.
func (s *SlogLogger) Warn(msg string, fields ...any) { s.logger.Warn(msg, fields...) }

// Error implements Logger. A leading error value becomes the "error" attribute.
func (s *SlogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	s.logger.Error(msg, fields...)
}

// With implements Logger.
func (s *SlogLogger) With(fields ...any) Logger {
	return &SlogLogger{logger: s.logger.With(fields...)}
}

// Enabled implements Logger.
func (s *SlogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.logger.Enabled(ctx, slog.Level(level))
}
