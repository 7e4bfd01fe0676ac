package goShop

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/goShop/cache"
	"github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Builder assembles a [Client].
//
// Builder instances are intended to be configured during initialization and used once.
type Builder struct {
	config Config

	httpClient   *http.Client
	sessionStore session.Store
	cacheStore   cache.Store
	redis        redis.UniversalClient
	redirector   LoginRedirector
	logger       *slog.Logger
	auditSink    AuditSink

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithHTTPClient sets the client used for all attempts. Its Timeout, if any, applies in
// addition to Config.API.Timeout.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithSessionStore sets where tokens are persisted. Without one, tokens live in memory.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

// WithCacheStore sets the query cache backend. Without one, an in-process cache is used.
func (b *Builder) WithCacheStore(store cache.Store) *Builder {
	b.cacheStore = store
	return b
}

// WithRedis backs both the session and the query cache with Redis, under the prefixes
// from Config. Explicit WithSessionStore/WithCacheStore take precedence.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLoginRedirector(r LoginRedirector) *Builder {
	b.redirector = r
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) WithCacheEnabled(enabled bool) *Builder {
	b.config.Cache.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready client. It does not load
// persisted tokens; call [Client.LoadSession] for that.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// -------- TRANSPORT --------
	httpClient := b.httpClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConnsPerHost = cfg.Transport.MaxIdleConnsPerHost
		httpClient = &http.Client{Transport: transport}
	}
	var limiter *rate.Limiter
	if cfg.Transport.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Transport.RequestsPerSecond), cfg.Transport.Burst)
	}

	// -------- SESSION / CACHE STORES --------
	sessionStore := b.sessionStore
	if sessionStore == nil && b.redis != nil {
		sessionStore = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	}
	cacheStore := b.cacheStore
	if cacheStore == nil && b.redis != nil {
		cacheStore = cache.NewRedisStore(b.redis, cfg.Cache.RedisPrefix)
	}

	redirector := b.redirector
	if redirector == nil {
		redirector = noopRedirector{}
	}

	metrics := NewMetrics(cfg.Metrics)

	c := &Client{
		cfg:          cfg,
		http:         httpClient,
		limiter:      limiter,
		session:      session.New(sessionStore),
		redirector:   redirector,
		logger:       logger,
		metrics:      metrics,
		cache:        newQueryCache(cfg.Cache, cacheStore, logger, metrics),
		newRequestID: uuid.NewString,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:      cfg.Audit.Enabled,
			BufferSize:   cfg.Audit.BufferSize,
			DropIfFull:   cfg.Audit.DropIfFull,
			DrainTimeout: cfg.Audit.DrainTimeout,
		}, b.auditSink),
	}

	b.built = true
	return c, nil
}
