package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	file    *os.File
	mu      sync.Mutex
	enabled bool
	logger  = charmlog.New(io.Discard)
)

// DefaultPath returns ~/.config/go-stepseq/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "go-stepseq", "debug.log")
}

// Enable starts debug logging to path (DefaultPath when empty)
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	enabled = true
	logger = newLogger(f)
	logger.Info("=== Debug logging started ===")
	return nil
}

// EnableWriter sends debug logging to w (tests, stderr)
func EnableWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
	logger = newLogger(w)
}

func newLogger(w io.Writer) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.DebugLevel,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Prefix:          "stepseq",
	})
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
	logger = charmlog.New(io.Discard)
}

// Logger returns the structured logger (discarding when disabled)
func Logger() *charmlog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes a message to the debug log under a category
func Log(category, format string, args ...any) {
	mu.Lock()
	l, on := logger, enabled
	mu.Unlock()

	if !on {
		return
	}
	l.Debug(fmt.Sprintf(format, args...), "cat", category)
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	if !enabled {
		mu.Unlock()
		return
	}
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
