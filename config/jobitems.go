package config

import (
	"strings"
	"time"
)

const (
	defaultJobItemAPIBaseURL = "https://bytegrad.com/course-assets/projects/rmtdev/api/data"
	defaultStaleTime         = time.Hour
	defaultLocalCapacity     = 1024
	minSweepInterval         = 10 * time.Second
)

// JobItemAPIConfig points the fetcher at the remote job listing API.
type JobItemAPIConfig struct {
	BaseURL string `env:"JOBITEM_API_BASE_URL" envDefault:"https://bytegrad.com/course-assets/projects/rmtdev/api/data"`

	// Timeout bounds a single request. Zero means no client-side timeout.
	Timeout time.Duration `env:"JOBITEM_API_TIMEOUT" envDefault:"0s"`
}

// Sanitize normalises the base URL and clamps negative timeouts.
func (c *JobItemAPIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultJobItemAPIBaseURL
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
}

// QueryCacheConfig controls the job item query cache.
type QueryCacheConfig struct {
	// StaleTime is how long a settled job item is served without refetching.
	StaleTime time.Duration `env:"QUERY_CACHE_STALE_TIME" envDefault:"1h"`

	// GCTime is how long an unobserved entry is kept before the sweeper drops it.
	GCTime time.Duration `env:"QUERY_CACHE_GC_TIME" envDefault:"1h"`

	// LocalCapacity bounds the in-process LRU tier.
	LocalCapacity int `env:"QUERY_CACHE_LOCAL_CAPACITY" envDefault:"1024"`

	SweepInterval time.Duration `env:"QUERY_CACHE_SWEEP_INTERVAL" envDefault:"5m"`

	// RedisEnabled turns on the shared tier so several replicas reuse one fetch.
	RedisEnabled bool   `env:"QUERY_CACHE_REDIS_ENABLED" envDefault:"false"`
	RedisPrefix  string `env:"QUERY_CACHE_REDIS_PREFIX"  envDefault:"jobitems:"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *QueryCacheConfig) Sanitize() {
	if c.StaleTime <= 0 {
		c.StaleTime = defaultStaleTime
	}
	// Entries must not be collected while still fresh.
	if c.GCTime < c.StaleTime {
		c.GCTime = c.StaleTime
	}
	if c.LocalCapacity <= 0 {
		c.LocalCapacity = defaultLocalCapacity
	}
	if c.SweepInterval < minSweepInterval {
		c.SweepInterval = minSweepInterval
	}
	c.RedisPrefix = strings.TrimSpace(c.RedisPrefix)
}
