package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"igfeed/pkg/config"
)

// Logger is the structured logger threaded through clients, stores and commands
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	GetZerolog() *zerolog.Logger
}

type zlogger struct {
	z zerolog.Logger
}

// New builds a Logger from the logging section. Without a file it writes
// human-readable lines to stderr so they never mix with command output on
// stdout.
func New(cfg *config.LoggingConfig) (Logger, error) {
	if cfg.File == "" {
		return NewWithWriter(cfg, consoleWriter(os.Stderr))
	}
	f, err := openLogFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("failed to setup file output: %w", err)
	}
	return NewWithWriter(cfg, f)
}

// NewWithWriter builds a Logger that emits JSON lines to w
func NewWithWriter(cfg *config.LoggingConfig, w io.Writer) (Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.TimeFieldFormat = time.RFC3339
	z := zerolog.New(w).Level(level).With().Timestamp().Str("app", "igfeed").Logger()
	return &zlogger{z: z}, nil
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("| %s", i)
		},
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

var levels = map[string]zerolog.Level{
	"":         zerolog.InfoLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"disabled": zerolog.Disabled,
}

func parseLogLevel(name string) (zerolog.Level, error) {
	if l, ok := levels[strings.ToLower(name)]; ok {
		return l, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", name)
}

func (l *zlogger) Debug(msg string) { l.emit(zerolog.DebugLevel, msg, nil) }
func (l *zlogger) Info(msg string)  { l.emit(zerolog.InfoLevel, msg, nil) }
func (l *zlogger) Warn(msg string)  { l.emit(zerolog.WarnLevel, msg, nil) }
func (l *zlogger) Error(msg string) { l.emit(zerolog.ErrorLevel, msg, nil) }

func (l *zlogger) DebugWithFields(msg string, f map[string]interface{}) {
	l.emit(zerolog.DebugLevel, msg, f)
}
func (l *zlogger) InfoWithFields(msg string, f map[string]interface{}) {
	l.emit(zerolog.InfoLevel, msg, f)
}
func (l *zlogger) WarnWithFields(msg string, f map[string]interface{}) {
	l.emit(zerolog.WarnLevel, msg, f)
}
func (l *zlogger) ErrorWithFields(msg string, f map[string]interface{}) {
	l.emit(zerolog.ErrorLevel, msg, f)
}

func (l *zlogger) WithField(key string, value interface{}) Logger {
	return &zlogger{z: l.z.With().Interface(key, value).Logger()}
}

func (l *zlogger) WithFields(fields map[string]interface{}) Logger {
	c := l.z.With()
	for k, v := range fields {
		c = c.Interface(k, v)
	}
	return &zlogger{z: c.Logger()}
}

func (l *zlogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zlogger{z: l.z.With().Err(err).Logger()}
}

func (l *zlogger) GetZerolog() *zerolog.Logger { return &l.z }

func (l *zlogger) emit(level zerolog.Level, msg string, fields map[string]interface{}) {
	e := l.z.WithLevel(level)
	if e == nil {
		return
	}
	for k, v := range fields {
		switch tv := v.(type) {
		case string:
			e.Str(k, tv)
		case int:
			e.Int(k, tv)
		case int64:
			e.Int64(k, tv)
		case bool:
			e.Bool(k, tv)
		case time.Duration:
			e.Dur(k, tv)
		case error:
			e.AnErr(k, tv)
		default:
			e.Interface(k, tv)
		}
	}
	e.Msg(msg)
}

var (
	mu     sync.Mutex
	global Logger
)

// Initialize replaces the process-wide logger
func Initialize(cfg *config.LoggingConfig) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	global = l
	mu.Unlock()
	return nil
}

// GetLogger returns the process-wide logger, defaulting to info on stderr
func GetLogger() Logger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global, _ = New(&config.LoggingConfig{Level: "info"})
	}
	return global
}

// Nop discards everything
func Nop() Logger {
	return &zlogger{z: zerolog.Nop()}
}
