package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultLogFile = "swap-control.log"

var (
	mu           sync.Mutex
	traceEnabled bool
	logPath      string
	logFile      *os.File
	tracerNow    = func() time.Time { return time.Now().UTC() }

	// logger stays silent until Configure is called so that tests and the
	// terminal UI never get stray output.
	logger = newLogger(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	tracer = newLogger(&log.JSONFormatter{
		FieldMap: log.FieldMap{log.FieldKeyMsg: "event"},
	})
)

func newLogger(formatter log.Formatter) *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(formatter)
	l.SetLevel(log.InfoLevel)
	return l
}

// Configure opens the log destination shared by the error log and the trace
// log. Empty paths fall back to the default file; missing directories are
// created. level accepts any logrus level name.
func Configure(path, level string) {
	mu.Lock()
	defer mu.Unlock()

	if strings.TrimSpace(path) == "" {
		path = defaultLogFile
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "unable to create log directory: %v\n", err)
		path = defaultLogFile
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging failed: %v\n", err)
		return
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	logPath = path
	logger.SetOutput(f)
	tracer.SetOutput(f)

	if lvl, err := log.ParseLevel(strings.TrimSpace(level)); err == nil {
		logger.SetLevel(lvl)
	}
}

// Path returns the configured log path, or "" before Configure.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Close releases the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	logger.SetOutput(io.Discard)
	tracer.SetOutput(io.Discard)
}

// Logger exposes the shared logger, e.g. as a badger.Logger.
func Logger() *log.Logger {
	return logger
}

// Error writes err to the shared log.
func Error(err error) {
	if err == nil {
		return
	}
	logger.Error(err)
}

// Warn logs a warning with err attached.
func Warn(err error, msg string) {
	logger.WithError(err).Warn(msg)
}

// SetTraceEnabled toggles emission of structured trace entries.
func SetTraceEnabled(enabled bool) {
	mu.Lock()
	traceEnabled = enabled
	mu.Unlock()
}

// Trace appends a structured JSON entry when tracing is enabled.
func Trace(event string, payload interface{}) {
	mu.Lock()
	enabled := traceEnabled
	mu.Unlock()
	if !enabled {
		return
	}
	entry := tracer.WithTime(tracerNow())
	if payload != nil {
		entry = entry.WithField("payload", payload)
	}
	entry.Info(event)
}
