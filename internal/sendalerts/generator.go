package sendalerts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/okian/capmap/pkg/logger"
)

// generateAlerts builds NumAlerts alerts by cycling through the scenario
// templates, giving each a unique identifier.
func generateAlerts(ctx context.Context, config *Config, scenario *Scenario, stats *Stats) ([]Alert, error) {
	if scenario == nil || len(scenario.Alerts) == 0 {
		return nil, ErrEmptyScenario
	}
	logger.Get().Info(ctx, "generating alerts",
		logger.Int("numAlerts", config.NumAlerts),
		logger.Int("templates", len(scenario.Alerts)))

	alerts := make([]Alert, config.NumAlerts)
	for i := range alerts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during alert generation: %w", err)
		}
		a := scenario.Alerts[i%len(scenario.Alerts)]
		a.Identifier = uuid.NewString()
		alerts[i] = a
	}

	stats.AlertsGenerated = len(alerts)
	logger.Get().Info(ctx, "generated alerts successfully", logger.Int("count", len(alerts)))
	return alerts, nil
}
