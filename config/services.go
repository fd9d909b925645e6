package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP trigger server used by the external scheduler.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeTicker triggers pipeline and retention runs in-process on an interval.
	ServiceModeTicker ServiceMode = "ticker"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeTicker,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeTicker:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, ticker)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// TickerConfig controls in-process triggering for deployments without an external scheduler.
type TickerConfig struct {
	// PipelineInterval is the delay between pipeline runs.
	PipelineInterval time.Duration `env:"TICKER_PIPELINE_INTERVAL" envDefault:"5m"`

	// RetentionInterval is the delay between retention runs.
	RetentionInterval time.Duration `env:"TICKER_RETENTION_INTERVAL" envDefault:"1h"`
}

// Sanitize applies guardrails to ticker configuration values.
func (t *TickerConfig) Sanitize() {
	// Enforce minimum intervals to prevent hammering the classifier and the database
	if t.PipelineInterval < time.Minute {
		t.PipelineInterval = time.Minute
	}
	if t.RetentionInterval < 5*time.Minute {
		t.RetentionInterval = 5 * time.Minute
	}
}
