package goShop

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Login exchanges credentials for a token pair and stores it. Any cached query from a
// previous session is dropped.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, invalidArgument("username and password are required")
	}
	return c.authenticate(ctx, AuditLogin, "/auth/login/", req)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, invalidArgument("username, email and password are required")
	}
	return c.authenticate(ctx, AuditRegister, "/auth/register/", req)
}

func (c *Client) authenticate(ctx context.Context, event, path string, body any) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, call{method: http.MethodPost, path: path, body: body, anonymous: true, noRecover: true}, &resp)
	if err == nil && (resp.Access == "" || resp.Refresh == "") {
		err = &APIError{
			Message: "authentication response carries no tokens",
			Status:  http.StatusInternalServerError,
			Err:     ErrDecodeResponse,
		}
	}
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.emitAudit(ctx, event, "", false, err, nil)
		return nil, err
	}

	if err := c.session.Set(ctx, resp.Access, resp.Refresh); err != nil {
		c.logger.Warn("goShop: persisting credentials failed", "error", err)
	}
	c.cache.clear(ctx)
	c.metrics.Inc(MetricLoginSuccess)
	c.emitAudit(ctx, event, c.currentUserID(), true, nil, nil)
	return &resp, nil
}

type logoutRequest struct {
	Refresh string `json:"refresh,omitempty"`
}

// Logout tells the backend to revoke the refresh token, then drops the local tokens and
// the query cache whether or not the backend call succeeded. The backend error, if any,
// is returned after local state has been cleared.
func (c *Client) Logout(ctx context.Context) error {
	creds := c.session.Credentials()
	userID := c.currentUserID()

	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/auth/logout/",
		body:      logoutRequest{Refresh: creds.RefreshToken},
		noRecover: true,
	}, nil)

	local := context.WithoutCancel(ctx)
	if cerr := c.session.Clear(local); cerr != nil {
		c.logger.Warn("goShop: clearing credentials failed", "error", cerr)
		if err == nil {
			err = &APIError{Message: cerr.Error(), Status: http.StatusInternalServerError, Err: cerr}
		}
	}
	c.cache.clear(local)
	c.metrics.Inc(MetricLogout)
	c.emitAudit(ctx, AuditLogout, userID, err == nil, err, nil)
	return err
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	return cachedQuery[*User](ctx, c, Key(QueryUser), true, func(ctx context.Context, out **User) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/profile/"}, out)
	})
}

// UpdateProfile applies a partial update and caches the returned user.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	if update.Email == nil && update.FirstName == nil && update.LastName == nil {
		return nil, invalidArgument("profile update has no fields")
	}
	var user User
	if err := c.do(ctx, call{method: http.MethodPatch, path: "/profile/", body: update}, &user); err != nil {
		return nil, err
	}
	c.cache.save(ctx, Key(QueryUser), &user)
	return &user, nil
}

// OrderStats returns the signed-in user's order totals.
func (c *Client) OrderStats(ctx context.Context) (*OrderStats, error) {
	return cachedQuery[*OrderStats](ctx, c, Key(QueryUserStats), true, func(ctx context.Context, out **OrderStats) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/orders/stats/"}, out)
	})
}

// IsSessionExpired reports whether err is the unauthorized error returned after the
// session could not be recovered.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
