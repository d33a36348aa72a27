package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the job API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeMetrics runs the Prometheus metrics endpoint.
	ServiceModeMetrics ServiceMode = "metrics"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeMetrics}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeMetrics:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, metrics)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// PoolConfig sizes the worker pool that executes aggregation jobs.
type PoolConfig struct {
	// Workers is the number of worker goroutines. Zero means one per CPU.
	Workers int `env:"TP_NUM_OF_THREADS" envDefault:"0"`

	// PollInterval bounds how long an idle worker waits before rechecking for shutdown.
	PollInterval time.Duration `env:"POOL_POLL_INTERVAL" envDefault:"100ms"`

	// WriteAttempts caps tries at persisting an artifact when the result store fails transiently.
	WriteAttempts int           `env:"POOL_WRITE_ATTEMPTS" envDefault:"3"`
	WriteBackoff  time.Duration `env:"POOL_WRITE_BACKOFF"  envDefault:"50ms"`
}

// Sanitize applies guardrails to pool configuration values.
func (p *PoolConfig) Sanitize() {
	if p.Workers <= 0 {
		p.Workers = runtime.NumCPU()
	}
	if p.PollInterval <= 0 {
		p.PollInterval = 100 * time.Millisecond
	}
	if p.WriteAttempts <= 0 {
		p.WriteAttempts = 1
	}
	if p.WriteBackoff < 0 {
		p.WriteBackoff = 0
	}
}
