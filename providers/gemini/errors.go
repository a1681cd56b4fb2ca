package gemini

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/petal-labs/imagine/core"
	"github.com/petal-labs/imagine/providers/internal/normalize"
)

const providerName = "gemini"

// normalizeError converts an HTTP error response to a classified TransportError.
func normalizeError(resp *http.Response, body []byte, requestID string, cred core.Credential) error {
	err := normalize.GoogleStyleTransportError(providerName, resp.StatusCode, resp.Header, body, requestID)
	if te, ok := err.(*core.TransportError); ok {
		te.Message = scrub(cred, te.Message)
	}
	return err
}

// newNetworkError classifies a failure that produced no response.
func newNetworkError(err error, cred core.Credential) error {
	return normalize.NetworkError(providerName, err, scrub(cred, err.Error()))
}

// newEncodeError reports an invalid request parameter.
func newEncodeError(param string, sentinel error, format string, args ...any) error {
	return &core.EncodeError{
		Param:   param,
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	}
}

// newDecodeError reports an unusable response body.
func newDecodeError(reason core.DecodeReason, err error, format string, args ...any) error {
	return &core.DecodeError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// scrub removes the credential, raw or URL-escaped, from s.
func scrub(cred core.Credential, s string) string {
	s = cred.Redact(s)
	if cred.IsEmpty() {
		return s
	}
	if escaped := url.QueryEscape(cred.Expose()); escaped != cred.Expose() {
		s = strings.ReplaceAll(s, escaped, "[REDACTED]")
	}
	return s
}
