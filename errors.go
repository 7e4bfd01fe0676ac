package goShop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired is wrapped by the unauthorized error returned when a 401 could not
	// be recovered by refreshing the access token.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated is returned by authenticated queries when no access token is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidArgument is returned for arguments rejected before any request is sent.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRefreshFailed describes a refresh call that did not yield a new access token.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrDecodeResponse is returned when a successful response body cannot be decoded.
	ErrDecodeResponse = errors.New("decode response")
	// ErrClientClosed is returned by calls made after [Client.Close].
	ErrClientClosed = errors.New("client closed")
	// ErrInvalidConfig is returned by [Config.Validate].
	ErrInvalidConfig = errors.New("invalid config")
)

const defaultErrorMessage = "An error occurred"

// APIError is the single shape every client failure is reported in.
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`

	// Err is the underlying cause, if any. It is reachable through errors.Is/As.
	Err error `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsAPIError returns the [*APIError] in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, 0 for nil and 500 for errors that did
// not originate from a response.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// IsUnauthorized reports whether err carries status 401.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// normalizeError builds the uniform error for a failed attempt. status is 0 when no
// response was received; cause is the transport error in that case.
func normalizeError(status int, body []byte, cause error) *APIError {
	out := &APIError{Status: status, Err: cause}
	if out.Status == 0 {
		out.Status = http.StatusInternalServerError
	}

	var payload map[string]json.RawMessage
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			payload = nil
		}
	}

	msg := stringField(payload, "message")
	if msg == "" {
		msg = stringField(payload, "detail")
	}
	if msg == "" && cause != nil {
		msg = strings.TrimSpace(cause.Error())
	}
	if msg == "" && status > 0 {
		msg = fmt.Sprintf("request failed with status code %d", status)
	}
	if msg == "" {
		msg = defaultErrorMessage
	}
	out.Message = msg

	if raw, ok := payload["details"]; ok {
		var details any
		if err := json.Unmarshal(raw, &details); err == nil && details != nil {
			out.Details = details
		}
	} else if len(payload) > 0 && !hasKey(payload, "message") && !hasKey(payload, "detail") {
		// Field validation errors ({"username": ["..."]}) carry no message of their own.
		var details map[string]any
		if err := json.Unmarshal(trimmed, &details); err == nil {
			out.Details = details
		}
	}

	return out
}

// unauthorizedError is the synthesized error surfaced when the session cannot be recovered.
func unauthorizedError(cause error) *APIError {
	err := ErrSessionExpired
	if cause != nil {
		err = errors.Join(ErrSessionExpired, cause)
	}
	return &APIError{
		Message: "Session expired, please log in again",
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func notAuthenticatedError() *APIError {
	return &APIError{
		Message: "Authentication required",
		Status:  http.StatusUnauthorized,
		Err:     ErrNotAuthenticated,
	}
}

func invalidArgument(format string, args ...any) *APIError {
	return &APIError{
		Message: fmt.Sprintf(format, args...),
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidArgument,
	}
}

func stringField(payload map[string]json.RawMessage, key string) string {
	raw, ok := payload[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func hasKey(payload map[string]json.RawMessage, key string) bool {
	_, ok := payload[key]
	return ok
}
