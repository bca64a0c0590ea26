package sendalerts

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmptyScenario is returned when a scenario file holds no alerts.
var ErrEmptyScenario = errors.New("scenario has no alerts")

// Scenario is a YAML file of alert templates.
//
//	alerts:
//	  - area: La Gasca
//	    headline: Heavy rain
//	    description: "Flooding expected. Safe zone: Parque La Carolina."
//	    severity: Severe
type Scenario struct {
	Alerts []Alert `yaml:"alerts"`
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Alerts) == 0 {
		return nil, ErrEmptyScenario
	}
	return &s, nil
}

// DefaultScenario returns built-in templates for areas around Ecuador.
func DefaultScenario() *Scenario {
	return &Scenario{Alerts: []Alert{
		{
			Area:        "La Gasca",
			Headline:    "Heavy rain warning",
			Description: "Mudflow risk on the slopes of Pichincha. Safe Zone: Parque La Carolina. Avoid ravines.",
			Urgency:     "Immediate", Severity: "Severe",
			UrgencyES: "Inmediata", SeverityES: "Severa",
		},
		{
			Area:        "Cuenca",
			Headline:    "River flood watch",
			Description: "Tomebamba river rising. safe zone - Parque Calderon. Stay away from the banks.",
			Urgency:     "Expected", Severity: "Moderate",
			UrgencyES: "Esperada", SeverityES: "Moderada",
		},
		{
			Area:        "Guayaquil",
			Headline:    "Tsunami advisory",
			Description: "Move inland. Safe zone: Cerro Santa Ana.",
			Urgency:     "Immediate", Severity: "Extreme",
			UrgencyES: "Inmediata", SeverityES: "Extrema",
		},
		{
			Area:        "Banos de Agua Santa",
			Headline:    "Volcanic ash fall",
			Description: "Tungurahua activity increased. Use masks and stay indoors.",
			Urgency:     "Expected", Severity: "Severe",
			UrgencyES: "Esperada", SeverityES: "Severa",
		},
		{
			Area:        "Latacunga",
			Headline:    "Lahar drill",
			Description: "Cotopaxi evacuation drill. SAFE ZONE: Parque Vicente Leon.",
			Urgency:     "Future", Severity: "Minor",
			UrgencyES: "Futura", SeverityES: "Menor",
		},
	}}
}
