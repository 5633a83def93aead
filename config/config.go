package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - jobitems.go: job item API and query cache configuration
//   - redis.go: shared cache tier connection
//   - http.go: HTTP server configuration
//   - services.go: service mode configuration
type AppConfig struct {
	// IsDev lowers the default log level to debug.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JobItemAPI JobItemAPIConfig
	QueryCache QueryCacheConfig

	Redis RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	// Services is a comma-delimited list of enabled services: http, sweeper.
	Services string `env:"SERVICES" envDefault:"http"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.JobItemAPI.Sanitize()
	c.QueryCache.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	return c.serviceEnabled(ServiceModeHTTP)
}

// IsSweeperEnabled returns true if the cache sweeper service is enabled.
func (c *AppConfig) IsSweeperEnabled() bool {
	return c.serviceEnabled(ServiceModeSweeper)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}
