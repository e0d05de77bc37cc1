package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

var (
	mu         sync.Mutex
	fileHandle *os.File
	filePath   string
	level      slog.Level
)

// Init installs the process-wide slog handler. With an empty file path logs
// go to stderr; otherwise to the file, reopened on SIGHUP so external
// rotation works.
func Init(logLevel string, logFile string) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(logLevel)
	filePath = logFile

	var out io.Writer = os.Stderr
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
		} else if fh, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
		} else {
			fileHandle = fh
			out = fh
		}
	}

	install(out)

	if fileHandle != nil {
		setupRotation()
	}
}

func install(out io.Writer) {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	})
	slog.SetDefault(slog.New(handler))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}

/*
 * When logging to a file, listen for SIGHUP so rotation tooling can move the
 * file aside and signal us:
 *   mv tern.log tern.bak && kill -HUP <pid>
 */
func setupRotation() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	go func() {
		for range sigs {
			reopen()
		}
	}()
}

func reopen() {
	mu.Lock()
	defer mu.Unlock()
	if fileHandle != nil {
		fileHandle.Close()
	}
	fh, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not reopen log file '%s': %v\n", filePath, err)
		fileHandle = nil
		install(os.Stderr)
		return
	}
	fileHandle = fh
	install(fh)
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if fileHandle != nil {
		_ = fileHandle.Close()
		fileHandle = nil
	}
}
