package config

import (
	"strings"
	"time"
)

const defaultObservabilityName = "surveystats"

// ObservabilityConfig groups configuration that controls metric emission.
type ObservabilityConfig struct {
	Metrics    ObservabilityMetricsConfig
	Prometheus PrometheusConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Prometheus.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"surveystats"`
	// MaxPacketSize bounds one UDP datagram; buffered lines are flushed before it is exceeded.
	MaxPacketSize int           `env:"OBSERVABILITY_METRICS_MAX_PACKET_SIZE" envDefault:"1432"`
	FlushInterval time.Duration `env:"OBSERVABILITY_METRICS_FLUSH_INTERVAL"  envDefault:"1s"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	if c.Prefix = strings.TrimSpace(c.Prefix); c.Prefix == "" {
		c.Prefix = defaultObservabilityName
	}
	if c.MaxPacketSize <= 0 || c.MaxPacketSize > 65507 {
		c.MaxPacketSize = 1432
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// PrometheusConfig controls the /metrics endpoint served by the metrics service mode.
type PrometheusConfig struct {
	Addr      string `env:"METRICS_ADDR"      envDefault:":9090"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"surveystats"`
}

// Sanitize normalises the Prometheus settings.
func (c *PrometheusConfig) Sanitize() {
	if c.Addr = strings.TrimSpace(c.Addr); c.Addr == "" {
		c.Addr = ":9090"
	}
	if c.Namespace = strings.TrimSpace(c.Namespace); c.Namespace == "" {
		c.Namespace = defaultObservabilityName
	}
}
