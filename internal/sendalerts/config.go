package sendalerts

import "time"

// Config holds configuration for an alert run
type Config struct {
	BaseURL      string        // Base URL of the service
	NumAlerts    int           // Number of alerts to submit
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	ScenarioFile string        // Optional YAML file with alert templates
	OutputFile   string        // Output file for submitted alerts
	Verbose      bool          // Enable verbose logging
}

// Alert is a CAP-style alert as posted to /api/alert.
// Identifier is echoed back by the service as a passthrough field.
type Alert struct {
	Identifier  string `json:"identifier"            yaml:"-"`
	Area        string `json:"area,omitempty"        yaml:"area"`
	Headline    string `json:"headline,omitempty"    yaml:"headline"`
	Description string `json:"description,omitempty" yaml:"description"`
	Urgency     string `json:"urgency,omitempty"     yaml:"urgency"`
	Severity    string `json:"severity,omitempty"    yaml:"severity"`
	UrgencyES   string `json:"urgency_es,omitempty"  yaml:"urgency_es"`
	SeverityES  string `json:"severity_es,omitempty" yaml:"severity_es"`
}

// SafePlace is a safe place as returned by /api/alerts.
type SafePlace struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
}

// StoredAlert is the subset of a stored record the run inspects.
type StoredAlert struct {
	ID         string      `json:"id"`
	Identifier string      `json:"identifier"`
	Timestamp  string      `json:"timestamp"`
	Area       string      `json:"area"`
	Lat        *float64    `json:"lat"`
	Lng        *float64    `json:"lng"`
	SafePlaces []SafePlace `json:"safe_places"`
}

// AckResponse represents the response from alert submission
type AckResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Stats holds run statistics
type Stats struct {
	AlertsGenerated    int
	AlertsSubmitted    int
	AlertsSuccessful   int
	AlertsBackpressure int
	AlertsFailed       int
	StoredBefore       int
	StoredAfter        int
	DangerResolved     int
	SafePlacesListed   int
	SafePlacesResolved int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
