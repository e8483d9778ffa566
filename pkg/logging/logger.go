package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// NewJSONLogger creates a JSON logger writing to writer
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		writer: writer,
		level:  &levelHolder{level: level},
		mu:     &sync.Mutex{},
	}
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if len(l.fields)+len(fields) > 0 {
		entry.Fields = make(map[string]any, len(l.fields)+len(fields))
		for _, f := range l.fields {
			entry.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	data, err := json.Marshal(entry)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		fmt.Fprintf(l.writer, "[ERROR] failed to marshal log entry %q: %v\n", msg, err)
		return
	}
	l.writer.Write(append(data, '\n'))
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

// With creates a child logger sharing the writer and level
func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &JSONLogger{
		writer: l.writer,
		level:  l.level,
		fields: merged,
		mu:     l.mu,
	}
}

// SetLevel sets the minimum level for this logger and its children
func (l *JSONLogger) SetLevel(level Level) {
	l.level.mu.Lock()
	l.level.level = level
	l.level.mu.Unlock()
}

// GetLevel returns the current minimum level
func (l *JSONLogger) GetLevel() Level {
	l.level.mu.RLock()
	defer l.level.mu.RUnlock()
	return l.level.level
}

var (
	defaultLogger Logger
	defaultMu     sync.RWMutex
	defaultOnce   sync.Once
)

// DefaultLogger returns the process-wide logger. It writes JSON to stderr
// at the level named by LCI_LOG_LEVEL.
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultLogger == nil {
			defaultLogger = NewJSONLogger(os.Stderr, ParseLevel(os.Getenv("LCI_LOG_LEVEL")))
		}
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger
func SetDefaultLogger(logger Logger) {
	defaultOnce.Do(func() {})
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// OrDefault returns logger, or the default logger when logger is nil
func OrDefault(logger Logger) Logger {
	if logger == nil {
		return DefaultLogger()
	}
	return logger
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
func (t *TimedOperation) End(fields ...Field) time.Duration {
	elapsed := time.Since(t.start)
	all := append(append(t.fields[:len(t.fields):len(t.fields)], fields...), Latency(elapsed))
	t.logger.Info(t.msg, all...)
	return elapsed
}

// EndError logs the operation as failed with its duration
func (t *TimedOperation) EndError(err error) time.Duration {
	elapsed := time.Since(t.start)
	all := append(t.fields[:len(t.fields):len(t.fields)], Latency(elapsed), Error(err))
	t.logger.Error(t.msg, all...)
	return elapsed
}
