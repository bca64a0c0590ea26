// Package sendalerts drives a running capmap service with concurrent alert
// submissions and checks what it stored.
package sendalerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/capmap/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes a complete submission run.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting capmap alert run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("alerts", config.NumAlerts),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.String("scenario", config.ScenarioFile),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config.BaseURL); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Load templates and generate alerts
	scenario := DefaultScenario()
	if config.ScenarioFile != "" {
		s, err := LoadScenario(config.ScenarioFile)
		if err != nil {
			return nil, err
		}
		scenario = s
	}
	alerts, err := generateAlerts(ctx, config, scenario, stats)
	if err != nil {
		return nil, fmt.Errorf("alert generation failed: %w", err)
	}

	// Step 3: Snapshot the store
	before, err := fetchAlerts(ctx, client, config.BaseURL)
	if err != nil {
		return nil, err
	}

	// Step 4: Submit alerts concurrently
	counts := submitAlerts(ctx, config, alerts, stats)

	// Step 5: Verify what was stored. Submissions return after storage,
	// so no settling delay is needed.
	after, err := fetchAlerts(ctx, client, config.BaseURL)
	if err != nil {
		return nil, err
	}
	if err := verifyResults(ctx, counts, alerts, before, after, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Save alerts to file
	if config.OutputFile != "" {
		if err := saveAlertsToFile(ctx, config.OutputFile, alerts); err != nil {
			logger.Get().Warn(ctx, "failed to save alerts to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	// The service answers health checks with Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveAlertsToFile writes the submitted alerts as a JSON array.
func saveAlertsToFile(ctx context.Context, filename string, alerts []Alert) error {
	if len(alerts) == 0 {
		return errors.New("no alerts to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "alerts saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, alertsPerSecond float64

	if stats.AlertsSubmitted > 0 {
		successRate = float64(stats.AlertsSuccessful) / float64(stats.AlertsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		alertsPerSecond = float64(stats.AlertsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("alertsGenerated", stats.AlertsGenerated),
		logger.Int("alertsSubmitted", stats.AlertsSubmitted),
		logger.Int("alertsSuccessful", stats.AlertsSuccessful),
		logger.Int("alertsBackpressure", stats.AlertsBackpressure),
		logger.Int("alertsFailed", stats.AlertsFailed),
		logger.Int("storedBefore", stats.StoredBefore),
		logger.Int("storedAfter", stats.StoredAfter),
		logger.Int("dangerResolved", stats.DangerResolved),
		logger.Int("safePlacesListed", stats.SafePlacesListed),
		logger.Int("safePlacesResolved", stats.SafePlacesResolved),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("alertsPerSecond", alertsPerSecond))
}
