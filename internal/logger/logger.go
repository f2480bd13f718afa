// Package logger owns the process-wide charmbracelet logger. Output goes to a
// size-rotated file under the cache directory; debug mode also mirrors it to
// stderr.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/novaplanner/nova/internal/constants"
)

const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

var (
	current atomic.Pointer[log.Logger]
	discard = log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})

	rotMu   sync.Mutex
	rotator *lumberjack.Logger
)

type Config struct {
	Debug bool
	// Dir is the cache directory; the log file lives in Dir/logs.
	Dir string
	// Stderr receives the mirrored output in debug mode. Defaults to os.Stderr.
	Stderr io.Writer
}

// Path returns the log file location for a cache directory.
func Path(dir string) string {
	return filepath.Join(dir, "logs", constants.AppName+".log")
}

// Init replaces the global logger. A previously opened log file is closed.
func Init(cfg Config) error {
	path := Path(cfg.Dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	rot := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.WarnLevel,
		Prefix:          constants.AppName,
	}
	var w io.Writer = rot
	if cfg.Debug {
		opts.Level = log.DebugLevel
		opts.ReportCaller = true
		stderr := cfg.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		w = io.MultiWriter(stderr, rot)
	}

	rotMu.Lock()
	prev := rotator
	rotator = rot
	rotMu.Unlock()

	current.Store(log.NewWithOptions(w, opts))
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Set installs l as the global logger without touching the log file. Passing
// nil restores the discard logger.
func Set(l *log.Logger) {
	current.Store(l)
}

// Close flushes and closes the log file opened by Init.
func Close() error {
	rotMu.Lock()
	rot := rotator
	rotator = nil
	rotMu.Unlock()

	current.Store(nil)
	if rot == nil {
		return nil
	}
	return rot.Close()
}

// Default returns the global logger, or one that drops everything before Init.
func Default() *log.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return discard
}

// With returns a child of the global logger carrying prefix.
func With(prefix string) *log.Logger {
	return Default().WithPrefix(prefix)
}

func Debug(msg string, keyvals ...any) { Default().Debug(msg, keyvals...) }
func Info(msg string, keyvals ...any)  { Default().Info(msg, keyvals...) }
func Warn(msg string, keyvals ...any)  { Default().Warn(msg, keyvals...) }
func Error(msg string, keyvals ...any) { Default().Error(msg, keyvals...) }
