// Package normalize provides shared transport error normalization helpers.
package normalize

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/petal-labs/imagine/core"
)

// googleStyleErrorResponse represents APIs that return:
// {"error":{"code":400,"message":"...","status":"INVALID_ARGUMENT"}}
type googleStyleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GoogleStyleTransportError normalizes a non-2xx response carrying a Google
// API error envelope. Bodies that are not JSON fall back to the status text.
func GoogleStyleTransportError(provider string, status int, header http.Header, body []byte, requestID string) error {
	var errResp googleStyleErrorResponse
	_ = json.Unmarshal(body, &errResp)

	var retryAfter time.Duration
	if header != nil {
		retryAfter = ParseRetryAfter(header.Get("Retry-After"), time.Now())
	}

	return TransportError(provider, status, requestID, errResp.Error.Status, errResp.Error.Message, retryAfter)
}

// TransportError constructs a normalized *core.TransportError for an HTTP status.
// If message is empty, HTTP status text is used.
func TransportError(provider string, status int, requestID, code, message string, retryAfter time.Duration) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &core.TransportError{
		Provider:   provider,
		Class:      ClassForStatus(status),
		Status:     status,
		Code:       code,
		Message:    message,
		RequestID:  requestID,
		RetryAfter: retryAfter,
		Err:        SentinelForStatus(status),
	}
}

// NetworkError classifies a failure that produced no HTTP response.
// The raw error is flattened into the message so that context errors of the
// attempt do not leak into retry decisions; callers redact the message first.
func NetworkError(provider string, err error, message string) error {
	sentinel := core.ErrNetwork
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		sentinel = core.ErrTimeout
	}
	return &core.TransportError{
		Provider: provider,
		Class:    core.TransportRetryable,
		Message:  message,
		Err:      sentinel,
	}
}

// BodyReadError classifies a response whose body could not be read.
func BodyReadError(provider string, status int, requestID, message string) error {
	return &core.TransportError{
		Provider:  provider,
		Class:     core.TransportRetryable,
		Status:    status,
		RequestID: requestID,
		Message:   message,
		Err:       core.ErrNetwork,
	}
}

// ClassForStatus maps an HTTP status to a retry class.
// 408, 429 and 5xx are retryable; every other non-2xx status is fatal.
func ClassForStatus(status int) core.TransportClass {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return core.TransportRetryable
	default:
		return core.TransportFatal
	}
}

// SentinelForStatus maps an HTTP status code to a core sentinel error.
func SentinelForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return core.ErrBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrUnauthorized
	case status == http.StatusNotFound:
		return core.ErrNotFound
	case status == http.StatusRequestTimeout:
		return core.ErrTimeout
	case status == http.StatusRequestEntityTooLarge:
		return core.ErrPayloadTooLarge
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimited
	case status >= 500:
		return core.ErrServer
	default:
		return core.ErrBadRequest
	}
}

// ParseRetryAfter reads a Retry-After header given either in seconds or as
// an HTTP date. It returns 0 when the header is absent or unusable.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
