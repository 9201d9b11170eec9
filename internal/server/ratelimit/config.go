package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the rate budget for one endpoint tier.
type EndpointConfig struct {
	Path   string // exact path, or a "/"-suffixed prefix
	Method string // HTTP method
	Limit  int    // requests per window; <= 0 means unlimited
	Window time.Duration
	Burst  int // burst capacity, defaults to Limit when 0
}

// Config holds the limiter configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Endpoints       []EndpointConfig
}

// tierFor resolves the tier that governs a request. Health checks are always
// unlimited; job submission is exact-matched and the polling endpoints are
// prefix-matched. Anything else falls into the default tier.
func (c *Config) tierFor(path, method string) EndpointConfig {
	if path == "/health" && method == http.MethodGet {
		return EndpointConfig{}
	}

	for _, ep := range c.Endpoints {
		if ep.Method != method {
			continue
		}
		if ep.Path == path {
			return ep
		}
		if strings.HasSuffix(ep.Path, "/") && strings.HasPrefix(path, ep.Path) {
			return ep
		}
	}

	return EndpointConfig{
		Path:   path,
		Method: method,
		Limit:  c.DefaultLimit,
		Window: c.DefaultWindow,
		Burst:  c.DefaultLimit,
	}
}

// LoadConfig builds the limiter configuration from environment variables.
func LoadConfig() *Config {
	if !envBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Endpoints:       DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint budgets. A generation job
// fans out to several paid providers, so submissions are capped hard while
// the polling endpoints stay generous.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/generate", Method: http.MethodPost, Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/generate/stream", Method: http.MethodPost, Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/status/", Method: http.MethodGet, Limit: 600, Window: time.Minute, Burst: 60},
		{Path: "/result/", Method: http.MethodGet, Limit: 600, Window: time.Minute, Burst: 60},
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
