package probe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/app1/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger and, when logFile is set, mirrors
// entries to it. The returned func closes the file.
func SetupLogging(logFile string) (func() error, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if logFile == "" {
		return func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file.Close, nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `app1 probe
==========

Exercises the data routes of a running app1 instance concurrently and checks
every response: labels, messages, the three sample items, exact echo of
posted JSON and non-decreasing timestamps.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -base string
        Prefix the data routes are mounted under (default "/api")
  -app string
        Identifier every envelope must carry (default "app1")
  -requests int
        Number of GET and POST requests each (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -log string
        Also write logs to this file
  -verbose
        Log every mismatch
  -help
        Show this help message

Examples:
  # Probe a local instance
  go run ./cmd/probe

  # Probe a throttle-free instance harder
  go run ./cmd/probe -requests 5000 -workers 32 -url http://localhost:9090
`)
}
