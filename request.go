package goShop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// maxRetries caps how often one call is resubmitted after a 401.
	maxRetries       = 1
	maxResponseBytes = 8 << 20
)

// call describes one logical request. Its attempts share the request ID and payload.
type call struct {
	method string
	path   string
	query  url.Values
	body   any

	// anonymous calls never carry a bearer token.
	anonymous bool
	// noRecover calls surface a 401 as-is instead of refreshing.
	noRecover bool
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	if c.closed.Load() {
		return &APIError{Message: ErrClientClosed.Error(), Status: http.StatusInternalServerError, Err: ErrClientClosed}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var payload []byte
	if cl.body != nil {
		var err error
		if payload, err = json.Marshal(cl.body); err != nil {
			return invalidArgument("encode request body: %v", err)
		}
	}

	reqID := requestIDFromContext(ctx)
	if reqID == "" {
		reqID = c.newRequestID()
		ctx = WithRequestID(ctx, reqID)
	}

	c.metrics.Inc(MetricRequest)
	start := time.Now()
	err := c.send(ctx, &cl, payload, reqID, 0, out)
	elapsed := time.Since(start)
	c.metrics.Observe(MetricRequestLatency, elapsed)

	if err != nil {
		c.metrics.Inc(MetricRequestFailure)
		c.logger.Debug("goShop: request failed",
			"method", cl.method, "path", cl.path, "request_id", reqID,
			"status", StatusOf(err), "elapsed", elapsed, "error", err)
		return err
	}
	c.logger.Debug("goShop: request", "method", cl.method, "path", cl.path, "request_id", reqID, "elapsed", elapsed)
	return nil
}

// send performs attempt number attempt of cl. A 401 moves the call into recovery once;
// whatever the retry returns is final.
func (c *Client) send(ctx context.Context, cl *call, payload []byte, reqID string, attempt int, out any) error {
	var access string
	if !cl.anonymous {
		access = c.session.AccessToken()
	}

	status, body, err := c.roundTrip(ctx, cl.method, c.endpoint(cl.path, cl.query), payload, reqID, access)
	if err != nil {
		c.metrics.Inc(MetricTransportError)
		return normalizeError(0, nil, err)
	}
	if status >= 200 && status < 300 {
		return decodeBody(body, out)
	}

	if status == http.StatusUnauthorized {
		c.metrics.Inc(MetricUnauthorized)
		if !cl.noRecover && attempt < maxRetries {
			if err := c.recoverSession(ctx, access); err != nil {
				return err
			}
			c.metrics.Inc(MetricRetry)
			return c.send(ctx, cl, payload, reqID, attempt+1, out)
		}
	}
	return normalizeError(status, body, nil)
}

// roundTrip performs one HTTP exchange. A non-nil error means no response was received.
func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte, reqID, access string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.API.Timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.API.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.API.UserAgent)
	}
	if reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	target := c.cfg.API.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func decodeBody(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{
			Message: fmt.Sprintf("decode response: %v", err),
			Status:  http.StatusInternalServerError,
			Err:     errors.Join(ErrDecodeResponse, err),
		}
	}
	return nil
}
