package goShop

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/jwt"
	"github.com/MrEthical07/goShop/session"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// LoginRedirector is told where to send the user when the session cannot be recovered.
type LoginRedirector interface {
	RedirectToLogin(ctx context.Context, path string)
}

// LoginRedirectorFunc adapts a function to [LoginRedirector].
type LoginRedirectorFunc func(ctx context.Context, path string)

func (f LoginRedirectorFunc) RedirectToLogin(ctx context.Context, path string) {
	f(ctx, path)
}

type noopRedirector struct{}

func (noopRedirector) RedirectToLogin(context.Context, string) {}

// Client is the authenticated storefront API client. Build one with [New].
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter

	session      *session.Session
	refreshGroup singleflight.Group
	redirector   LoginRedirector

	cache   *queryCache
	logger  *slog.Logger
	metrics *Metrics
	audit   *audit.Dispatcher

	newRequestID func() string
	closed       atomic.Bool
}

// Close stops the audit dispatcher after delivering buffered events, waiting at most
// Config.Audit.DrainTimeout. Calls made after Close fail with [ErrClientClosed].
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.closed.Swap(true) {
		return
	}
	if !c.audit.Close() {
		c.logger.Warn("goShop: audit events still buffered at close were dropped", "dropped", c.audit.Dropped())
	}
}

// Session exposes the credential owner, for callers that persist or inspect tokens.
func (c *Client) Session() *session.Session {
	return c.session
}

// LoadSession restores tokens from the session store.
func (c *Client) LoadSession(ctx context.Context) error {
	return c.session.Load(ctx)
}

// IsAuthenticated reports whether an access token is held.
func (c *Client) IsAuthenticated() bool {
	return c.session.Authenticated()
}

// AccessClaims decodes the held access token without verifying it. The result is for
// display (user id, role, expiry) and must not gate anything.
func (c *Client) AccessClaims() (*jwt.Claims, error) {
	token := c.session.AccessToken()
	if token == "" {
		return nil, notAuthenticatedError()
	}
	return jwt.Inspect(token)
}

func (c *Client) currentUserID() string {
	token := c.session.AccessToken()
	if token == "" {
		return ""
	}
	claims, err := jwt.Inspect(token)
	if err != nil {
		return ""
	}
	return string(claims.UserID)
}

// InvalidateQueries drops every cached entry under each key.
func (c *Client) InvalidateQueries(ctx context.Context, keys ...QueryKey) {
	c.cache.invalidate(ctx, keys...)
}

// ClearCache drops every cached query.
func (c *Client) ClearCache(ctx context.Context) {
	c.cache.clear(ctx)
}

func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot copies the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events that never reached the sink.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return cloneConfig(c.cfg)
}
