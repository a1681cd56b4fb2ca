package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/petal-labs/imagine/core"
	"github.com/petal-labs/imagine/providers/internal/normalize"
)

// Transport performs one authenticated generateContent request per Send.
// It never retries; classification of failures is left to the caller's
// retry policy. Transport is safe for concurrent use.
type Transport struct {
	config Config
	client *http.Client
}

// NewTransport creates a transport.
func NewTransport(opts ...Option) *Transport {
	cfg := newConfig(opts)
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{config: cfg, client: client}
}

// Send posts body to endpoint. Non-2xx statuses, connection failures and
// unreadable bodies are returned as *core.TransportError. The credential
// never appears in returned errors.
func (t *Transport) Send(ctx context.Context, endpoint string, body []byte, cred core.Credential) (*core.RawResponse, error) {
	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	target, err := t.authenticate(endpoint, cred)
	if err != nil {
		return nil, &core.TransportError{
			Provider: providerName,
			Class:    core.TransportFatal,
			Message:  scrub(cred, err.Error()),
			Err:      core.ErrBadRequest,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, &core.TransportError{
			Provider: providerName,
			Class:    core.TransportFatal,
			Message:  scrub(cred, err.Error()),
			Err:      core.ErrBadRequest,
		}
	}
	for key, values := range t.buildHeaders(cred) {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, newNetworkError(err, cred)
	}
	defer resp.Body.Close()

	requestID := requestIDFrom(resp.Header)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, t.config.MaxResponseBytes+1))
	if err != nil {
		return nil, normalize.BodyReadError(providerName, resp.StatusCode, requestID,
			scrub(cred, fmt.Sprintf("read response body: %v", err)))
	}
	if int64(len(respBody)) > t.config.MaxResponseBytes {
		return nil, &core.TransportError{
			Provider:  providerName,
			Class:     core.TransportFatal,
			Status:    resp.StatusCode,
			RequestID: requestID,
			Message:   fmt.Sprintf("response body exceeds %d bytes", t.config.MaxResponseBytes),
			Err:       core.ErrPayloadTooLarge,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, normalizeError(resp, respBody, requestID, cred)
	}

	return &core.RawResponse{
		Status:    resp.StatusCode,
		Header:    resp.Header.Clone(),
		Body:      respBody,
		RequestID: requestID,
	}, nil
}

// authenticate returns the request URL, with the key appended in query mode.
func (t *Transport) authenticate(endpoint string, cred core.Credential) (string, error) {
	if t.config.AuthMode != AuthQuery {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", cred.Expose())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// buildHeaders constructs the HTTP headers for an API request.
func (t *Transport) buildHeaders(cred core.Credential) http.Header {
	headers := make(http.Header)

	headers.Set("Content-Type", "application/json")
	if t.config.AuthMode == AuthHeader && !cred.IsEmpty() {
		headers.Set("x-goog-api-key", cred.Expose())
	}

	for key, values := range t.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}

	return headers
}

func requestIDFrom(h http.Header) string {
	for _, key := range []string{"X-Request-Id", "X-Goog-Request-Id"} {
		if v := h.Get(key); v != "" {
			return v
		}
	}
	return ""
}

var _ core.Transport = (*Transport)(nil)
