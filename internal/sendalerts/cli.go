package sendalerts

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/capmap/pkg/logger"
)

// SetupLogging initialises the logger, writing to w at debug level when
// verbose is set.
func SetupLogging(w io.Writer, verbose bool) error {
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the alert sender.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`capmap alert sender
===================

Submits alerts concurrently to a running capmap service and verifies that
every acknowledged alert was stored with a unique count.

Usage:
  go run ./cmd/send-alerts [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -alerts int
        Number of alerts to submit (default 20)
  -workers int
        Number of concurrent workers (default 4)
  -timeout duration
        HTTP request timeout (default 2m0s)
  -scenario string
        YAML file with alert templates (default: built-in Ecuador templates)
  -output string
        Write the submitted alerts to this JSON file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Scenario file:
  alerts:
    - area: La Gasca
      headline: Heavy rain warning
      description: "Flooding expected. Safe zone: Parque La Carolina."
      urgency: Immediate
      severity: Severe

Examples:
  go run ./cmd/send-alerts -alerts 50 -workers 8
  go run ./cmd/send-alerts -scenario drills.yaml -url http://localhost:8080
`)
}
