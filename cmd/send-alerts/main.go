package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/capmap/internal/sendalerts"
)

// Default configuration constants.
const (
	defaultNumAlerts   = 20
	defaultWorkers     = 4
	defaultTimeout     = 2 * time.Minute
	defaultTestTimeout = 30 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:5000", "Base URL of the service")
		numAlerts  = flag.Int("alerts", defaultNumAlerts, "Number of alerts to submit")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		scenario   = flag.String("scenario", "", "YAML file with alert templates")
		outputFile = flag.String("output", "", "Write the submitted alerts to this JSON file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		sendalerts.ShowHelp()
		return
	}

	if err := sendalerts.SetupLogging(os.Stdout, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &sendalerts.Config{
		BaseURL:      *baseURL,
		NumAlerts:    *numAlerts,
		Workers:      max(*workers, 1),
		Timeout:      *timeout,
		ScenarioFile: *scenario,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}

	if _, err := sendalerts.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
