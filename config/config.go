// Package config loads the service configuration from environment variables.
package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Postgres and Redis connection settings
//   - dataset.go: survey dataset location and question classification
//   - http.go: HTTP server configuration
//   - logging.go: log level and rotating log file
//   - observability.go: StatsD and Prometheus metrics
//   - results.go: result store backend selection
//   - services.go: service modes and worker pool sizing
type AppConfig struct {
	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http"`

	// Worker pool configuration
	Pool PoolConfig

	// Survey dataset configuration
	Dataset DatasetConfig

	// Result store configuration
	Results ResultsConfig

	// Logging configuration
	Logging LoggingConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Postgres.Sanitize()
	c.Pool.Sanitize()
	c.Dataset.Sanitize()
	c.Results.Sanitize()
	c.Logging.Sanitize()
	c.Observability.Sanitize()
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsMetricsServerEnabled returns true if the Prometheus metrics endpoint is enabled.
func (c *AppConfig) IsMetricsServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeMetrics]
}

// NeedsPostgres reports whether any configured component talks to Postgres.
func (c *AppConfig) NeedsPostgres() bool {
	return c.Results.Backend == ResultsBackendPostgres
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *AppConfig) NeedsRedis() bool {
	return c.Results.Backend == ResultsBackendRedis
}
