// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - All loaders accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var metricNamePart = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`) //nolint:gochecknoglobals // compiled once

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// QueueSize bounds the number of alerts waiting for enrichment.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of enrichment workers. It also caps the
	// number of geocoder calls in flight.
	WorkerCount int `koanf:"worker_count"`

	// MaxBodyBytes caps POST /api/alert bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// GeocoderURL is the base URL of the Nominatim-compatible search API.
	GeocoderURL string `koanf:"geocoder_url"`

	// GeocoderUserAgent identifies this deployment to the provider.
	GeocoderUserAgent string `koanf:"geocoder_user_agent"`

	// GeocoderEmail is sent as the "email" parameter when set.
	GeocoderEmail string `koanf:"geocoder_email"`

	// GeocoderTimeoutMS bounds each outbound lookup.
	GeocoderTimeoutMS int `koanf:"geocoder_timeout_ms"`

	// GeocoderRatePerSec paces outbound lookups; <= 0 disables pacing.
	GeocoderRatePerSec float64 `koanf:"geocoder_rate_per_sec"`

	// GeocoderBurst is the number of lookups allowed back to back.
	GeocoderBurst int `koanf:"geocoder_burst"`

	// RegionSuffix is appended to every place query, e.g. ", Ecuador".
	RegionSuffix string `koanf:"region_suffix"`

	// SafeZoneMarker is the phrase that introduces a safe place in descriptions.
	SafeZoneMarker string `koanf:"safe_zone_marker"`

	// MetricsNamespace and MetricsSubsystem prefix every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBucketsMS overrides the latency histogram buckets. Empty keeps
	// the built-in ones.
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`

	// MetricsLabels are constant labels attached to every metric, e.g. region.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":5000",
		QueueSize:          1024,
		WorkerCount:        4,
		MaxBodyBytes:       1 << 20,
		GeocoderURL:        "https://nominatim.openstreetmap.org",
		GeocoderUserAgent:  "capmap/1.0 (+https://github.com/okian/capmap)",
		GeocoderTimeoutMS:  5000,
		GeocoderRatePerSec: 1,
		GeocoderBurst:      1,
		RegionSuffix:       ", Ecuador",
		SafeZoneMarker:     "safe zone",
		MetricsNamespace:   "capmap",
		MetricsSubsystem:   "alerts",
	}
}

// GeocoderTimeout returns GeocoderTimeoutMS as a duration.
func (c *Config) GeocoderTimeout() time.Duration {
	return time.Duration(c.GeocoderTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.GeocoderUserAgent) == "":
		return fmt.Errorf("%w: geocoder_user_agent must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.SafeZoneMarker) == "":
		return fmt.Errorf("%w: safe_zone_marker must not be empty", ErrInvalidConfig)
	case c.GeocoderTimeoutMS <= 0:
		return fmt.Errorf("%w: geocoder_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}

	u, err := url.Parse(c.GeocoderURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: geocoder_url %q is not an absolute URL", ErrInvalidConfig, c.GeocoderURL)
	}
	return c.validateMetrics()
}

func (c *Config) validateMetrics() error {
	if !metricNamePart.MatchString(c.MetricsNamespace) {
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	}
	if !metricNamePart.MatchString(c.MetricsSubsystem) {
		return fmt.Errorf("%w: metrics_subsystem %q is not a valid metric name", ErrInvalidConfig, c.MetricsSubsystem)
	}
	for i := 1; i < len(c.MetricsBucketsMS); i++ {
		if c.MetricsBucketsMS[i] <= c.MetricsBucketsMS[i-1] {
			return fmt.Errorf("%w: metrics_buckets_ms must be strictly increasing", ErrInvalidConfig)
		}
	}
	for name := range c.MetricsLabels {
		if !metricNamePart.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics_labels key %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	return nil
}
