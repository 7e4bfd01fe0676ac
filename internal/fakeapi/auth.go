package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/MrEthical07/goShop/internal/rate"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerBody struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type refreshBody struct {
	Refresh string `json:"refresh"`
}

type tokenPair struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh,omitempty"`
	User    *userJSON `json:"user,omitempty"`
}

type profileBody struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (s *Server) login(c echo.Context) error {
	var body loginBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
	}
	missing := map[string]string{}
	if strings.TrimSpace(body.Username) == "" {
		missing["username"] = "This field is required."
	}
	if body.Password == "" {
		missing["password"] = "This field is required."
	}
	if len(missing) > 0 {
		return fieldErrors(c, missing)
	}

	ctx := c.Request().Context()
	key := strings.ToLower(strings.TrimSpace(body.Username))
	if s.throttle != nil {
		if err := s.throttle.Check(ctx, key); err != nil {
			return throttled(c, err)
		}
	}

	s.mu.Lock()
	acct := s.findAccountLocked(body.Username)
	s.mu.Unlock()
	ok := false
	if acct != nil {
		verified, err := s.hasher.Verify(body.Password, acct.PasswordHash)
		ok = err == nil && verified
	}
	if !ok {
		if s.throttle != nil {
			if err := s.throttle.Fail(ctx, key); err != nil {
				return throttled(c, err)
			}
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "No active account found with the given credentials")
	}
	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, key); err != nil {
			return throttled(c, err)
		}
	}
	return s.respondWithTokens(c, http.StatusOK, acct)
}

// throttled renders a limiter error. Failures of the limiter itself reject the login.
func throttled(c echo.Context, err error) error {
	var limited *rate.LimitedError
	if errors.As(err, &limited) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(limited.Seconds()))
		return echo.NewHTTPError(http.StatusTooManyRequests,
			fmt.Sprintf("Request was throttled. Expected available in %d seconds.", limited.Seconds()))
	}
	return echo.NewHTTPError(http.StatusServiceUnavailable, "Login is temporarily unavailable.")
}

func (s *Server) register(c echo.Context) error {
	var body registerBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
	}
	problems := map[string]string{}
	if strings.TrimSpace(body.Username) == "" {
		problems["username"] = "This field is required."
	}
	if !strings.Contains(body.Email, "@") {
		problems["email"] = "Enter a valid email address."
	}
	if len(body.Password) < 8 {
		problems["password"] = "This password is too short. It must contain at least 8 characters."
	}
	if len(problems) > 0 {
		return fieldErrors(c, problems)
	}

	hash, err := s.hasher.Hash(body.Password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.findAccountLocked(body.Username) != nil {
		s.mu.Unlock()
		return fieldErrors(c, map[string]string{"username": "A user with that username already exists."})
	}
	acct := &account{
		ID:           s.newIDLocked(),
		Username:     body.Username,
		Email:        body.Email,
		FirstName:    body.FirstName,
		LastName:     body.LastName,
		Role:         "customer",
		PasswordHash: hash,
	}
	s.accounts[acct.ID] = acct
	s.mu.Unlock()

	return s.respondWithTokens(c, http.StatusCreated, acct)
}

func (s *Server) respondWithTokens(c echo.Context, status int, acct *account) error {
	access, refresh, err := s.issuePair(acct)
	if err != nil {
		return err
	}
	user := acct.json()
	return c.JSON(status, tokenPair{Access: access, Refresh: refresh, User: &user})
}

func (s *Server) refresh(c echo.Context) error {
	var body refreshBody
	if err := c.Bind(&body); err != nil || body.Refresh == "" {
		return fieldErrors(c, map[string]string{"refresh": "This field is required."})
	}

	s.mu.Lock()
	fail, delay := s.failRefresh, s.refreshDelay
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-c.Request().Context().Done():
			timer.Stop()
			return c.Request().Context().Err()
		}
	}

	invalid := func() error {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
	}
	if fail {
		return invalid()
	}

	claims, err := s.tokens.ParseRefresh(body.Refresh)
	if err != nil {
		return invalid()
	}
	id, err := strconv.Atoi(string(claims.UserID))
	if err != nil {
		return invalid()
	}

	s.mu.Lock()
	_, revoked := s.revokedRefresh[claims.ID]
	acct := s.accounts[id]
	if !revoked && acct != nil && s.cfg.RotateRefresh {
		s.revokedRefresh[claims.ID] = struct{}{}
	}
	s.mu.Unlock()
	if revoked || acct == nil {
		return invalid()
	}

	access, err := s.issueAccess(acct)
	if err != nil {
		return err
	}
	resp := tokenPair{Access: access}
	if s.cfg.RotateRefresh {
		if resp.Refresh, err = s.tokens.CreateRefresh(strconv.Itoa(acct.ID), acct.Role); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) logout(c echo.Context) error {
	var body refreshBody
	_ = c.Bind(&body)
	if body.Refresh != "" {
		if claims, err := s.tokens.ParseRefresh(body.Refresh); err == nil {
			s.mu.Lock()
			s.revokedRefresh[claims.ID] = struct{}{}
			s.mu.Unlock()
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Successfully logged out."})
}

func (s *Server) profile(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acct.json())
}

func (s *Server) updateProfile(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	var body profileBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
	}
	if body.Email != nil && !strings.Contains(*body.Email, "@") {
		return fieldErrors(c, map[string]string{"email": "Enter a valid email address."})
	}

	s.mu.Lock()
	if body.Email != nil {
		acct.Email = *body.Email
	}
	if body.FirstName != nil {
		acct.FirstName = *body.FirstName
	}
	if body.LastName != nil {
		acct.LastName = *body.LastName
	}
	user := acct.json()
	s.mu.Unlock()
	return c.JSON(http.StatusOK, user)
}
