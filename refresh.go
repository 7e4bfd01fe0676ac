package goShop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// recoverSession runs after a 401 on an attempt that carried staleAccess. It returns nil
// when the call may be retried, and the synthesized unauthorized error otherwise.
func (c *Client) recoverSession(ctx context.Context, staleAccess string) error {
	creds := c.session.Credentials()

	// Someone else refreshed while this attempt was in flight.
	if creds.AccessToken != "" && creds.AccessToken != staleAccess {
		return nil
	}

	// The session this attempt belonged to has already been ended by another call.
	if creds.AccessToken == "" && creds.RefreshToken == "" && staleAccess != "" {
		return unauthorizedError(nil)
	}

	if creds.RefreshToken == "" {
		c.endSession(ctx, c.currentUserID(), errors.New("no refresh token"))
		return unauthorizedError(nil)
	}

	var err error
	if c.cfg.Session.ShareRefresh {
		var shared bool
		_, err, shared = c.refreshGroup.Do(creds.RefreshToken, func() (any, error) {
			return nil, c.refreshAccess(ctx, creds.RefreshToken)
		})
		if shared {
			c.metrics.Inc(MetricRefreshShared)
		}
	} else {
		err = c.refreshAccess(ctx, creds.RefreshToken)
	}
	if err != nil {
		// A login during the refresh installed a new pair; the retry carries it.
		if current := c.session.AccessToken(); current != "" && current != staleAccess {
			return nil
		}
		return unauthorizedError(err)
	}
	return nil
}

// refreshAccess exchanges refreshToken for a new access token. On failure the session is
// ended. The exchange is detached from the caller's cancellation since other calls may be
// waiting on it.
func (c *Client) refreshAccess(ctx context.Context, refreshToken string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Session.RefreshTimeout)
	defer cancel()

	userID := c.currentUserID()
	payload, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	status, body, err := c.roundTrip(ctx, http.MethodPost, c.endpoint(c.cfg.API.RefreshPath, nil), payload, c.newRequestID(), "")

	var cause error
	switch {
	case err != nil:
		cause = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	case status < 200 || status >= 300:
		cause = fmt.Errorf("%w: %w", ErrRefreshFailed, normalizeError(status, body, nil))
	default:
		var tokens refreshResponse
		if jerr := json.Unmarshal(body, &tokens); jerr != nil || tokens.Access == "" {
			cause = fmt.Errorf("%w: response carries no access token", ErrRefreshFailed)
			break
		}
		ok, serr := c.session.Rotate(ctx, refreshToken, tokens.Access, tokens.Refresh)
		if serr != nil {
			c.logger.Warn("goShop: persisting refreshed token failed", "error", serr)
		}
		if !ok {
			// Logged out or logged in again meanwhile; the new pair is not ours to touch.
			return fmt.Errorf("%w: session changed during refresh", ErrRefreshFailed)
		}
		c.metrics.Inc(MetricRefreshSuccess)
		c.emitAudit(ctx, AuditTokenRefresh, userID, true, nil, nil)
		return nil
	}

	c.metrics.Inc(MetricRefreshFailure)
	c.logger.Warn("goShop: token refresh failed", "error", cause)
	c.emitAudit(ctx, AuditTokenRefresh, userID, false, cause, nil)
	c.endSession(ctx, userID, cause)
	return cause
}

// endSession drops credentials and cached queries and sends the user to the login entry
// point.
func (c *Client) endSession(ctx context.Context, userID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := c.session.Clear(ctx); err != nil {
		c.logger.Warn("goShop: clearing credentials failed", "error", err)
	}
	c.cache.clear(ctx)
	c.metrics.Inc(MetricSessionExpired)
	c.emitAudit(ctx, AuditSessionExpired, userID, false, cause, nil)
	c.logger.Info("goShop: session ended", "user_id", userID, "reason", cause)
	c.redirector.RedirectToLogin(ctx, c.cfg.API.LoginPath)
}
