package internal

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Logger provides leveled logging
type Logger struct {
	level LogLevel
}

// NewLogger creates a new logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return &Logger{level: ParseLevel(os.Getenv("LOG_LEVEL"))}
}

// ParseLevel maps ERROR/WARN/INFO/DEBUG/TRACE to a level, defaulting to INFO
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

// SetLevel changes the verbosity at runtime
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// LogFileName returns the daily log file name for t
func LogFileName(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("dataanalyst_%s.log", t.Format("20060102")))
}

// EnableFileSink tees the standard logger into the current day's log file
// under dir. The file is reopened when the date changes. The returned closer
// restores stderr-only output.
func EnableFileSink(dir string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	w := newDailyFile(dir, time.Now)
	if err := w.rotate(w.now()); err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, w))
	return closerFunc(func() error {
		log.SetOutput(os.Stderr)
		return w.Close()
	}), nil
}

// dailyFile appends to LogFileName(dir, now()) and switches files at midnight
type dailyFile struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
	day string
	f   *os.File
}

func newDailyFile(dir string, now func() time.Time) *dailyFile {
	return &dailyFile{dir: dir, now: now}
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t := d.now(); d.f == nil || t.Format("20060102") != d.day {
		if err := d.rotate(t); err != nil {
			return 0, err
		}
	}
	return d.f.Write(p)
}

// rotate closes the open file, if any, and opens the one for t
func (d *dailyFile) rotate(t time.Time) error {
	f, err := os.OpenFile(LogFileName(d.dir, t), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if d.f != nil {
		d.f.Close()
	}
	d.f, d.day = f, t.Format("20060102")
	return nil
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= LogLevelError {
		log.Printf("[ERROR] "+format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogLevelWarn {
		log.Printf("[WARN] "+format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		log.Printf("[INFO] "+format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	if l.level >= LogLevelTrace {
		log.Printf("[TRACE] "+format, args...)
	}
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()
