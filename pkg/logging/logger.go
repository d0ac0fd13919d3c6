package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnvLevel is the environment variable consulted by DefaultLogger
const EnvLevel = "ORDERVIZ_LOG_LEVEL"

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		out:    &output{writer: writer},
		level:  &levelBox{level: level},
		fields: make([]Field, 0),
	}
}

// NewFileLogger appends JSON log lines to path, creating parent directories.
// The interactive viewer logs here so the terminal stays free for drawing.
func NewFileLogger(path string, level Level) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l := NewJSONLogger(f, level)
	l.out.closer = f
	return l, nil
}

// Close releases the underlying file, if the logger owns one
func (l *JSONLogger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.closer == nil {
		return nil
	}
	err := l.out.closer.Close()
	l.out.closer = nil
	l.out.writer = io.Discard
	return err
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	fieldMap := make(map[string]any, len(l.fields)+len(fields))
	for _, f := range l.fields {
		fieldMap[f.Key] = f.Value
	}
	for _, f := range fields {
		fieldMap[f.Key] = f.Value
	}

	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if len(fieldMap) > 0 {
		entry.Fields = fieldMap
	}

	data, err := json.Marshal(entry)

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if err != nil {
		fmt.Fprintf(l.out.writer, "[ERROR] Failed to marshal log entry: %v\n", err)
		return
	}
	data = append(data, '\n')
	l.out.writer.Write(data)
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

// With creates a child logger with the given fields pre-set. The child shares
// the parent's writer and level.
func (l *JSONLogger) With(fields ...Field) Logger {
	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &JSONLogger{
		out:    l.out,
		level:  l.level,
		fields: newFields,
	}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.level.mu.Lock()
	defer l.level.mu.Unlock()
	l.level.level = level
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	l.level.mu.RLock()
	defer l.level.mu.RUnlock()
	return l.level.level
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// DefaultLogger returns the process-wide logger, writing to stderr at the
// level named by ORDERVIZ_LOG_LEVEL (INFO when unset).
func DefaultLogger() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		level := InfoLevel
		if levelStr := os.Getenv(EnvLevel); levelStr != "" {
			level = ParseLevel(levelStr)
		}
		defaultLogger = NewJSONLogger(os.Stderr, level)
	}
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

func Debug(msg string, fields ...Field) { DefaultLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { DefaultLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { DefaultLogger().Warn(msg, fields...) }

// ErrorLog logs at error level on the default logger.
// Named ErrorLog to avoid conflict with the Error field constructor.
func ErrorLog(msg string, fields ...Field) { DefaultLogger().Error(msg, fields...) }

// With creates a child of the default logger
func With(fields ...Field) Logger {
	return DefaultLogger().With(fields...)
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// End logs the operation at info level with its duration
func (t *TimedOperation) End() {
	t.logger.Info(t.msg, t.withLatency()...)
}

// EndDebug logs the operation at debug level with its duration
func (t *TimedOperation) EndDebug() {
	t.logger.Debug(t.msg, t.withLatency()...)
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error) {
	t.logger.Error(t.msg, append(t.withLatency(), Error(err))...)
}

func (t *TimedOperation) withLatency() []Field {
	fields := make([]Field, 0, len(t.fields)+1)
	fields = append(fields, t.fields...)
	return append(fields, Latency(time.Since(t.start)))
}
