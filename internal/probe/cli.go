package probe

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/okian/rtmonitor/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging logs to stdout and to logFile. If logFile is empty, a
// timestamped filename is generated. The returned closer closes the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		logFile = "probe_log_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file)), logger.WithLevel(level)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the probe tool.
func ShowHelp() {
	os.Stdout.WriteString(`Rt Probe
========

Evaluates every region of a running Rt service and checks each answer.

Usage:
  go run ./cmd/rt-probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -workers int
        Number of concurrent evaluations (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -wait duration
        How long to wait for a loaded snapshot or a reload (default 2m)
  -reload
        Request a reload before sweeping
  -municipalities
        Also evaluate every municipality
  -out string
        Directory for the TSV report (default ".")
  -log string
        Log file (default: probe_log_TIMESTAMP.log)
  -verbose
        Log every evaluation
  -help
        Show this help message

Examples:
  # Sweep regions of a local service
  go run ./cmd/rt-probe

  # Reload first, then sweep every municipality with 16 workers
  go run ./cmd/rt-probe -reload -municipalities -workers 16
`)
}
