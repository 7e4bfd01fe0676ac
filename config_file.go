package goShop

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by [LoadConfig]. They override values from the file.
const (
	EnvBaseURL           = "STOREFRONT_API_URL"
	EnvTimeout           = "GOSHOP_API_TIMEOUT"
	EnvUserAgent         = "GOSHOP_USER_AGENT"
	EnvRequestsPerSecond = "GOSHOP_REQUESTS_PER_SECOND"
	EnvBurst             = "GOSHOP_BURST"
	EnvRefreshTimeout    = "GOSHOP_REFRESH_TIMEOUT"
	EnvCacheEnabled      = "GOSHOP_CACHE_ENABLED"
	EnvMetricsEnabled    = "GOSHOP_METRICS_ENABLED"
)

// ConfigFileError carries the path of a config file that failed to load.
type ConfigFileError struct {
	Path string
	Err  error
}

func (e *ConfigFileError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrInvalidConfig, e.Path, e.Err)
}

func (e *ConfigFileError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.Err}
}

type fileConfig struct {
	API struct {
		BaseURL     string `yaml:"base_url"`
		Timeout     string `yaml:"timeout"`
		UserAgent   string `yaml:"user_agent"`
		LoginPath   string `yaml:"login_path"`
		RefreshPath string `yaml:"refresh_path"`
	} `yaml:"api"`
	Transport struct {
		RequestsPerSecond   *float64 `yaml:"requests_per_second"`
		Burst               *int     `yaml:"burst"`
		MaxIdleConnsPerHost *int     `yaml:"max_idle_conns_per_host"`
	} `yaml:"transport"`
	Session struct {
		RefreshTimeout string `yaml:"refresh_timeout"`
		ShareRefresh   *bool  `yaml:"share_refresh"`
		RedisPrefix    string `yaml:"redis_prefix"`
	} `yaml:"session"`
	Cache struct {
		Enabled     *bool             `yaml:"enabled"`
		RedisPrefix string            `yaml:"redis_prefix"`
		StaleTimes  map[string]string `yaml:"stale_times"`
	} `yaml:"cache"`
	Audit struct {
		Enabled      *bool  `yaml:"enabled"`
		BufferSize   *int   `yaml:"buffer_size"`
		DropIfFull   *bool  `yaml:"drop_if_full"`
		DrainTimeout string `yaml:"drain_timeout"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled           *bool `yaml:"enabled"`
		LatencyHistograms *bool `yaml:"latency_histograms"`
	} `yaml:"metrics"`
}

// LoadConfig builds a [Config] from defaults, an optional YAML file at path and the
// environment. envFiles are loaded into the process environment first with godotenv;
// missing env files are ignored. The result is validated.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	cfg := defaultConfig()

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, &ConfigFileError{Path: f, Err: err}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &ConfigFileError{Path: path, Err: err}
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, &ConfigFileError{Path: path, Err: err}
		}
		if err := fc.apply(&cfg); err != nil {
			return Config{}, &ConfigFileError{Path: path, Err: err}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	setString(&cfg.API.BaseURL, fc.API.BaseURL)
	setString(&cfg.API.UserAgent, fc.API.UserAgent)
	setString(&cfg.API.LoginPath, fc.API.LoginPath)
	setString(&cfg.API.RefreshPath, fc.API.RefreshPath)
	if err := setDuration(&cfg.API.Timeout, fc.API.Timeout, "api.timeout"); err != nil {
		return err
	}

	setPtr(&cfg.Transport.RequestsPerSecond, fc.Transport.RequestsPerSecond)
	setPtr(&cfg.Transport.Burst, fc.Transport.Burst)
	setPtr(&cfg.Transport.MaxIdleConnsPerHost, fc.Transport.MaxIdleConnsPerHost)

	if err := setDuration(&cfg.Session.RefreshTimeout, fc.Session.RefreshTimeout, "session.refresh_timeout"); err != nil {
		return err
	}
	setPtr(&cfg.Session.ShareRefresh, fc.Session.ShareRefresh)
	setString(&cfg.Session.RedisPrefix, fc.Session.RedisPrefix)

	setPtr(&cfg.Cache.Enabled, fc.Cache.Enabled)
	setString(&cfg.Cache.RedisPrefix, fc.Cache.RedisPrefix)
	if len(fc.Cache.StaleTimes) > 0 {
		cfg.Cache.StaleTimes = make(map[string]time.Duration, len(fc.Cache.StaleTimes))
		for root, raw := range fc.Cache.StaleTimes {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("cache.stale_times.%s: %w", root, err)
			}
			cfg.Cache.StaleTimes[root] = d
		}
	}

	setPtr(&cfg.Audit.Enabled, fc.Audit.Enabled)
	setPtr(&cfg.Audit.BufferSize, fc.Audit.BufferSize)
	setPtr(&cfg.Audit.DropIfFull, fc.Audit.DropIfFull)
	if err := setDuration(&cfg.Audit.DrainTimeout, fc.Audit.DrainTimeout, "audit.drain_timeout"); err != nil {
		return err
	}

	setPtr(&cfg.Metrics.Enabled, fc.Metrics.Enabled)
	setPtr(&cfg.Metrics.EnableLatencyHistograms, fc.Metrics.LatencyHistograms)
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.API.BaseURL, os.Getenv(EnvBaseURL))
	setString(&cfg.API.UserAgent, os.Getenv(EnvUserAgent))
	if err := setDuration(&cfg.API.Timeout, os.Getenv(EnvTimeout), EnvTimeout); err != nil {
		return configError(err.Error())
	}
	if err := setDuration(&cfg.Session.RefreshTimeout, os.Getenv(EnvRefreshTimeout), EnvRefreshTimeout); err != nil {
		return configError(err.Error())
	}
	if v := os.Getenv(EnvRequestsPerSecond); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return configError(fmt.Sprintf("%s: %v", EnvRequestsPerSecond, err))
		}
		cfg.Transport.RequestsPerSecond = rps
	}
	if v := os.Getenv(EnvBurst); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return configError(fmt.Sprintf("%s: %v", EnvBurst, err))
		}
		cfg.Transport.Burst = burst
	}
	for name, dst := range map[string]*bool{
		EnvCacheEnabled:   &cfg.Cache.Enabled,
		EnvMetricsEnabled: &cfg.Metrics.Enabled,
	} {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return configError(fmt.Sprintf("%s: %v", name, err))
			}
			*dst = b
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}
