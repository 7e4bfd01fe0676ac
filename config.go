package goShop

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the storefront API root used when none is configured.
const DefaultBaseURL = "http://localhost:8000/api/v1.1.1"

// Config groups the client settings per concern.
//
// Config values are copied by [Builder.WithConfig]; later mutation of the caller's value
// does not affect a built client.
type Config struct {
	API       APIConfig
	Transport TransportConfig
	Session   SessionConfig
	Cache     CacheConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig describes the backend the client talks to.
type APIConfig struct {
	BaseURL string
	// Timeout bounds each attempt; the retry after a refresh gets a fresh deadline.
	Timeout   time.Duration
	UserAgent string
	// LoginPath is handed to the LoginRedirector when the session cannot be recovered.
	LoginPath   string
	RefreshPath string
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig throttles outbound traffic. RequestsPerSecond <= 0 disables throttling.
type TransportConfig struct {
	RequestsPerSecond   float64
	Burst               int
	MaxIdleConnsPerHost int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token refresh.
type SessionConfig struct {
	RefreshTimeout time.Duration
	// ShareRefresh makes concurrent 401s wait on one in-flight refresh instead of each
	// issuing their own.
	ShareRefresh bool
	RedisPrefix  string
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the query cache.
type CacheConfig struct {
	Enabled     bool
	RedisPrefix string
	// StaleTimes overrides the stale time of a query root ("products", "cart", ...).
	StaleTimes map[string]time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls asynchronous delivery of session and order events.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// DrainTimeout bounds how long Client.Close waits for buffered events.
	DrainTimeout time.Duration
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the settings a client is built with when none are supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:     DefaultBaseURL,
			Timeout:     10 * time.Second,
			UserAgent:   "goShop/1",
			LoginPath:   "/auth/login",
			RefreshPath: "/auth/token/refresh/",
		},
		Transport: TransportConfig{
			RequestsPerSecond:   0,
			Burst:               1,
			MaxIdleConnsPerHost: 16,
		},
		Session: SessionConfig{
			RefreshTimeout: 10 * time.Second,
			ShareRefresh:   true,
			RedisPrefix:    "goshop:session",
		},
		Cache: CacheConfig{
			Enabled:     true,
			RedisPrefix: "goshop:cache",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize:   256,
			DropIfFull:   true,
			DrainTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Cache.StaleTimes != nil {
		out.Cache.StaleTimes = make(map[string]time.Duration, len(cfg.Cache.StaleTimes))
		for k, v := range cfg.Cache.StaleTimes {
			out.Cache.StaleTimes[k] = v
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return configError("API BaseURL must be an absolute http(s) URL")
	}
	if c.API.Timeout <= 0 {
		return configError("API Timeout must be > 0")
	}
	if !strings.HasPrefix(c.API.RefreshPath, "/") {
		return configError("API RefreshPath must start with /")
	}
	if strings.TrimSpace(c.API.LoginPath) == "" {
		return configError("API LoginPath must not be empty")
	}

	// Transport
	if c.Transport.RequestsPerSecond < 0 {
		return configError("Transport RequestsPerSecond must be >= 0")
	}
	if c.Transport.RequestsPerSecond > 0 && c.Transport.Burst < 1 {
		return configError("Transport Burst must be >= 1 when throttling is enabled")
	}
	if c.Transport.MaxIdleConnsPerHost < 0 {
		return configError("Transport MaxIdleConnsPerHost must be >= 0")
	}

	// Session
	if c.Session.RefreshTimeout <= 0 {
		return configError("Session RefreshTimeout must be > 0")
	}

	// Cache
	for root, d := range c.Cache.StaleTimes {
		if _, ok := defaultStaleTimes[root]; !ok {
			return configError(fmt.Sprintf("Cache StaleTimes has unknown query %q", root))
		}
		if d <= 0 {
			return configError(fmt.Sprintf("Cache StaleTimes[%q] must be > 0", root))
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit BufferSize must be > 0")
	}
	if c.Audit.DrainTimeout < 0 {
		return configError("Audit DrainTimeout must be >= 0")
	}

	return nil
}

func configError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
