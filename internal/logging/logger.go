// Package logging provides config-driven categorized logging for text2ppt.
// Entries go to a single file under the data directory, tagged with a
// "category" field. Logging is controlled by logging.debug_mode in the
// config file - when false, every category logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config
	CategoryAPI       Category = "api"       // Generation service HTTP calls
	CategorySession   Category = "session"   // Identity store, login/logout
	CategoryLifecycle Category = "lifecycle" // Generation request state machine
	CategoryStaging   Category = "staging"   // Attachment validation
	CategoryViewer    Category = "viewer"    // Slide viewer navigation
	CategoryHistory   Category = "history"   // Chat history sidebar
	CategoryDownload  Category = "download"  // File-save side effect
	CategoryUI        Category = "ui"        // TUI events
)

// Options mirrors config.LoggingConfig plus the resolved directory,
// so this package does not import config.
type Options struct {
	Dir        string
	File       string
	Level      string
	Format     string
	DebugMode  bool
	Categories map[string]bool
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the file-backed logger. In production mode
// (DebugMode false) it is a silent no-op and no directory is created.
func Initialize(o Options) error {
	if !o.DebugMode {
		Use(zap.NewNop(), o)
		return nil
	}
	if o.Dir == "" {
		return fmt.Errorf("logs directory required")
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	file := o.File
	if file == "" {
		file = "text2ppt.log"
	}

	level := zap.NewAtomicLevelAt(parseLevel(o.Level))
	encoding := "json"
	if o.Format == "text" {
		encoding = "console"
	}

	zc := zap.Config{
		Level:            level,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{filepath.Join(o.Dir, file)},
		ErrorOutputPaths: []string{"stderr"},
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Use(l, o)

	Get(CategoryBoot).Infow("logging initialized", "dir", o.Dir, "level", level.String())
	return nil
}

// Use installs an already-built zap logger. Tests pass an observer core here.
func Use(l *zap.Logger, o Options) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	opts = o
	loggers = make(map[Category]*zap.SugaredLogger)
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

var nop = zap.NewNop().Sugar()

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if !categoryEnabledLocked(category) {
		mu.RUnlock()
		return nop
	}
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := base.Sugar().With("category", string(category))
	loggers[category] = l
	return l
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

// API logs to the api category.
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Infof(format, args...)
}

// APIDebug logs a debug message to the api category.
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debugf(format, args...)
}

// Session logs to the session category.
func Session(format string, args ...interface{}) {
	Get(CategorySession).Infof(format, args...)
}

// Lifecycle logs to the lifecycle category.
func Lifecycle(format string, args ...interface{}) {
	Get(CategoryLifecycle).Infof(format, args...)
}

// LifecycleDebug logs a debug message to the lifecycle category.
func LifecycleDebug(format string, args ...interface{}) {
	Get(CategoryLifecycle).Debugf(format, args...)
}
