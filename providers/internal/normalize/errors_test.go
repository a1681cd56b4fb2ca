package normalize

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/petal-labs/imagine/core"
)

func TestGoogleStyleTransportError(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         []byte
		wantCode     string
		wantMsg      string
		wantClass    core.TransportClass
		wantSentinel error
	}{
		{
			name:         "invalid key",
			status:       http.StatusBadRequest,
			body:         []byte(`{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`),
			wantCode:     "INVALID_ARGUMENT",
			wantMsg:      "API key not valid.",
			wantClass:    core.TransportFatal,
			wantSentinel: core.ErrBadRequest,
		},
		{
			name:         "quota",
			status:       http.StatusTooManyRequests,
			body:         []byte(`{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`),
			wantCode:     "RESOURCE_EXHAUSTED",
			wantMsg:      "Resource exhausted",
			wantClass:    core.TransportRetryable,
			wantSentinel: core.ErrRateLimited,
		},
		{
			name:         "html body falls back to status text",
			status:       http.StatusBadGateway,
			body:         []byte(`<html>bad gateway</html>`),
			wantMsg:      "Bad Gateway",
			wantClass:    core.TransportRetryable,
			wantSentinel: core.ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GoogleStyleTransportError("gemini", tt.status, nil, tt.body, "req-1")

			var te *core.TransportError
			if !errors.As(err, &te) {
				t.Fatal("expected *core.TransportError")
			}
			if te.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", te.Code, tt.wantCode)
			}
			if te.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", te.Message, tt.wantMsg)
			}
			if te.Class != tt.wantClass {
				t.Errorf("Class = %q, want %q", te.Class, tt.wantClass)
			}
			if te.RequestID != "req-1" {
				t.Errorf("RequestID = %q", te.RequestID)
			}
			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("errors.Is(%v) = false", tt.wantSentinel)
			}
		})
	}
}

func TestGoogleStyleTransportErrorRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")

	err := GoogleStyleTransportError("gemini", http.StatusTooManyRequests, header, nil, "")
	var te *core.TransportError
	if !errors.As(err, &te) || te.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", te.RetryAfter)
	}
}

func TestClassForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   core.TransportClass
	}{
		{400, core.TransportFatal},
		{401, core.TransportFatal},
		{403, core.TransportFatal},
		{404, core.TransportFatal},
		{413, core.TransportFatal},
		{422, core.TransportFatal},
		{408, core.TransportRetryable},
		{429, core.TransportRetryable},
		{500, core.TransportRetryable},
		{502, core.TransportRetryable},
		{503, core.TransportRetryable},
		{504, core.TransportRetryable},
	}

	for _, tt := range tests {
		if got := ClassForStatus(tt.status); got != tt.want {
			t.Errorf("ClassForStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestSentinelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, core.ErrBadRequest},
		{http.StatusUnauthorized, core.ErrUnauthorized},
		{http.StatusForbidden, core.ErrUnauthorized},
		{http.StatusNotFound, core.ErrNotFound},
		{http.StatusRequestTimeout, core.ErrTimeout},
		{http.StatusRequestEntityTooLarge, core.ErrPayloadTooLarge},
		{http.StatusTooManyRequests, core.ErrRateLimited},
		{http.StatusInternalServerError, core.ErrServer},
		{http.StatusServiceUnavailable, core.ErrServer},
		{http.StatusTeapot, core.ErrBadRequest},
	}

	for _, tt := range tests {
		if got := SentinelForStatus(tt.status); !errors.Is(got, tt.want) {
			t.Errorf("SentinelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestNetworkError(t *testing.T) {
	err := NetworkError("gemini", errors.New("connection refused"), "dial failed")
	if !errors.Is(err, core.ErrNetwork) || !errors.Is(err, core.ErrRetryable) {
		t.Errorf("NetworkError = %v, want retryable network error", err)
	}
	if !core.IsRetryable(err) {
		t.Error("network error should be retryable")
	}

	timeout := NetworkError("gemini", timeoutErr{}, "timed out")
	if !errors.Is(timeout, core.ErrTimeout) {
		t.Errorf("timeout error = %v, want ErrTimeout", timeout)
	}

	// A client-side timeout wraps context.DeadlineExceeded; the attempt must
	// still be classified retryable.
	wrapped := NetworkError("gemini", context.DeadlineExceeded, "client timeout")
	if errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("network error should not expose the raw context error")
	}
	if !core.IsRetryable(wrapped) {
		t.Error("client timeout should be retryable")
	}
}

func TestBodyReadError(t *testing.T) {
	err := BodyReadError("gemini", 200, "req-9", "unexpected EOF")
	var te *core.TransportError
	if !errors.As(err, &te) || te.Class != core.TransportRetryable || te.Status != 200 {
		t.Errorf("BodyReadError = %+v", te)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "30", 30 * time.Second},
		{"negative", "-5", 0},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRetryAfter(tt.value, now); got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
