package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/rtmonitor/internal/probe"
)

// Default configuration constants.
const (
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL        = flag.String("url", "http://localhost:9080", "Base URL of the service")
		workers        = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent evaluations")
		timeout        = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait           = flag.Duration("wait", probe.DefaultReadyWait, "How long to wait for a loaded snapshot or a reload")
		reload         = flag.Bool("reload", false, "Request a reload before sweeping")
		municipalities = flag.Bool("municipalities", false, "Also evaluate every municipality")
		outputDir      = flag.String("out", ".", "Directory for the TSV report")
		logFile        = flag.String("log", "", "Log file (default: probe_log_TIMESTAMP.log)")
		verbose        = flag.Bool("verbose", false, "Log every evaluation")
		help           = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	closer, err := probe.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	config := &probe.Config{
		BaseURL:        *baseURL,
		Workers:        *workers,
		Timeout:        *timeout,
		ReadyWait:      *wait,
		Reload:         *reload,
		Municipalities: *municipalities,
		OutputDir:      *outputDir,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if _, err := probe.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		closer.Close()
		os.Exit(1)
	}
}
