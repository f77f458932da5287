// Package logging provides categorized file logging for grav1go's
// coordinator and worker binaries, plus the carriage-return-aware
// scanning needed to turn an external encoder's progress line into
// individual log-worthy updates instead of one unreadable blob.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Level represents the logging level.
type Level int

const (
	// LevelInfo is the default logging level.
	LevelInfo Level = iota
	// LevelDebug enables verbose debug logging.
	LevelDebug
)

// Category tags a log line with the subsystem that produced it, so a
// coordinator or worker log file can be grepped by concern.
type Category string

const (
	CategorySplit    Category = "SPLIT"
	CategoryDispatch Category = "DISPATCH"
	CategoryUpload   Category = "UPLOAD"
	CategoryEncode   Category = "ENCODE"
	CategoryAction   Category = "ACTION"
	CategoryHTTP     Category = "HTTP"
	CategoryWorker   Category = "WORKER"
)

// Logger wraps the standard logger with level filtering, category
// tagging, and file output.
type Logger struct {
	level    Level
	logger   *log.Logger
	file     *os.File
	filePath string
}

// Setup creates a new logger that writes to a timestamped log file under
// logDir. Returns nil if logging is disabled (noLog=true); all methods on a
// nil *Logger are no-ops, so callers do not need a separate nil check.
func Setup(logDir, namePrefix string, verbose, noLog bool) (*Logger, error) {
	if noLog {
		return nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.log", namePrefix, timestamp)
	filePath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	level := LevelInfo
	if verbose {
		level = LevelDebug
	}

	l := &Logger{
		level:    level,
		logger:   log.New(file, "", log.LstdFlags),
		file:     file,
		filePath: filePath,
	}

	l.Info(CategoryAction, "%s starting", namePrefix)
	if verbose {
		l.Info(CategoryAction, "debug level logging enabled")
	}

	return l, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// FilePath returns the path to the log file.
func (l *Logger) FilePath() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// Info logs an info-level message under the given category.
func (l *Logger) Info(cat Category, format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[INFO][%s] "+format, append([]any{cat}, args...)...)
}

// Debug logs a debug-level message (only if verbose mode is enabled).
func (l *Logger) Debug(cat Category, format string, args ...any) {
	if l == nil || l.level < LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG][%s] "+format, append([]any{cat}, args...)...)
}

// Warn logs a warning message under the given category.
func (l *Logger) Warn(cat Category, format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[WARN][%s] "+format, append([]any{cat}, args...)...)
}

// Error logs an error message under the given category.
func (l *Logger) Error(cat Category, format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[ERROR][%s] "+format, append([]any{cat}, args...)...)
}

// Writer returns an io.Writer that writes to the log file. Useful for
// redirecting subprocess stderr into the same file.
func (l *Logger) Writer() io.Writer {
	if l == nil || l.file == nil {
		return io.Discard
	}
	return l.file
}
