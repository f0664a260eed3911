package observability

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Standard log fields
const (
	FieldRunID      = "run_id"
	FieldRequestID  = "request_id"
	FieldComponent  = "component"
	FieldStage      = "stage"
	FieldStep       = "step"
	FieldDecision   = "decision"
	FieldReason     = "reason"
	FieldOutcome    = "outcome"
	FieldCount      = "count"
	FieldStatus     = "status"
	FieldDurationMs = "duration_ms"
	FieldService    = "service"
)

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Logger wraps logrus.Entry to provide structured logging with context support.
type Logger struct {
	*logrus.Entry
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // overrides stdout/file selection when set
	ServiceName string

	// File output, rotated by lumberjack. Empty disables it.
	File       string
	FileOnly   bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	fileCloser   io.Closer
	fileCloserMu sync.Mutex
)

// NewLogger creates a Logger. A nil config logs JSON at info level to stdout.
func NewLogger(cfg *LogConfig) *Logger {
	if cfg == nil {
		cfg = &LogConfig{Level: "info", Format: "json", ServiceName: "recruiter-agent"}
	}

	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetReportCaller(true)

	if strings.ToLower(cfg.Format) == "text" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  "2006-01-02T15:04:05.000Z07:00",
			CallerPrettyfier: callerPrettyfier,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
			CallerPrettyfier: callerPrettyfier,
		})
	}

	log.SetOutput(outputFor(cfg))

	service := cfg.ServiceName
	if service == "" {
		service = "recruiter-agent"
	}
	return &Logger{Entry: log.WithField("service", service)}
}

func outputFor(cfg *LogConfig) io.Writer {
	if cfg.Output != nil {
		return cfg.Output
	}

	var writers []io.Writer
	if cfg.File == "" || !cfg.FileOnly {
		writers = append(writers, os.Stdout)
	}
	if cfg.File != "" {
		fw := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, fw)

		fileCloserMu.Lock()
		fileCloser = fw
		fileCloserMu.Unlock()
	}
	return io.MultiWriter(writers...)
}

// Sync closes the rotating log file, if any.
func Sync() error {
	fileCloserMu.Lock()
	defer fileCloserMu.Unlock()
	if fileCloser != nil {
		return fileCloser.Close()
	}
	return nil
}

// Discard returns a logger that writes nowhere. Used by tests.
func Discard() *Logger {
	return NewLogger(&LogConfig{Level: "panic", Output: io.Discard})
}

// WithFields returns a new Logger with additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a new Logger with a single additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a new Logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

type loggerKey struct{}

var (
	defaultLogger   = NewLogger(nil)
	defaultLoggerMu sync.RWMutex
)

// SetDefault replaces the logger returned when a context carries none.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultLoggerMu.Lock()
	defaultLogger = l
	defaultLoggerMu.Unlock()
}

// Default returns the process-wide fallback logger.
func Default() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// WithContext returns a new context carrying l.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext extracts the logger from ctx, falling back to Default.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
			return l
		}
	}
	return Default()
}

// ContextWithFields returns ctx with a logger enriched by fields.
func ContextWithFields(ctx context.Context, fields Fields) context.Context {
	return FromContext(ctx).WithFields(fields).WithContext(ctx)
}

// RequestID returns the request id stored on the context logger, if any.
func RequestID(ctx context.Context) string {
	v, _ := FromContext(ctx).Data[FieldRequestID].(string)
	return v
}

// callerPrettyfier shortens caller info to package.func and file:line.
func callerPrettyfier(frame *runtime.Frame) (function string, file string) {
	funcName := frame.Function
	if idx := strings.LastIndex(funcName, "/"); idx != -1 {
		funcName = funcName[idx+1:]
	}
	return funcName, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}
