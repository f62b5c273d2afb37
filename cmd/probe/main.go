package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/app1/internal/probe"
)

// Default configuration constants.
const (
	defaultRequests     = 50
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 10 * time.Second
	defaultProbeTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Base URL of the service")
		basePath = flag.String("base", "/api", "Prefix the data routes are mounted under")
		app      = flag.String("app", "app1", "Identifier every envelope must carry")
		requests = flag.Int("requests", defaultRequests, "Number of GET and POST requests each")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile  = flag.String("log", "", "Also write logs to this file")
		verbose  = flag.Bool("verbose", false, "Log every mismatch")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp(os.Stdout)
		return
	}

	closeLog, err := probe.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)

	_, err = probe.Run(ctx, &probe.Config{
		BaseURL:  *baseURL,
		BasePath: *basePath,
		App:      *app,
		Requests: *requests,
		Workers:  max(1, *workers),
		Timeout:  *timeout,
		LogFile:  *logFile,
		Verbose:  *verbose,
	})
	cancel()
	_ = closeLog()
	if err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
