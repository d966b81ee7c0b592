package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	rotator *lumberjack.Logger
	base    = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// DefaultPath is used when no log file is configured.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "segcut.log"
	}
	return filepath.Join(dir, "segcut", "segcut.log")
}

func Setup(logFilePath, level string) {
	if logFilePath == "" {
		logFilePath = DefaultPath()
	}
	_ = os.MkdirAll(filepath.Dir(logFilePath), 0755)

	fmt.Printf("Log file: %s\n", logFilePath)

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	mu.Lock()
	defer mu.Unlock()

	rotator = &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     7,    // days
		Compress:   true, // gzip
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	base = zerolog.New(io.MultiWriter(console, rotator)).With().Timestamp().Logger()
}

// MuteStdout keeps only the rotating file as output.
func MuteStdout() {
	mu.Lock()
	defer mu.Unlock()
	if rotator != nil {
		base = zerolog.New(rotator).With().Timestamp().Logger()
	}
}

// SetOutput replaces the log destination.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = zerolog.New(w).With().Timestamp().Logger()
}

func L() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

func WithComponent(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}
