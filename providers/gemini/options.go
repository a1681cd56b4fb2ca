package gemini

import (
	"net/http"
	"strings"
	"time"
)

// AuthMode selects how the API key is sent.
type AuthMode string

const (
	// AuthHeader sends the key in the x-goog-api-key header.
	AuthHeader AuthMode = "header"
	// AuthQuery appends the key as the "key" query parameter.
	AuthQuery AuthMode = "query"
)

// Defaults for the Gemini API.
const (
	DefaultBaseURL          = "https://generativelanguage.googleapis.com"
	DefaultTimeout          = 60 * time.Second
	DefaultMaxPromptLength  = 10000
	DefaultMaxResponseBytes = 64 << 20
)

// Config holds configuration shared by the codec and the transport.
type Config struct {
	// BaseURL is the API base URL. Defaults to https://generativelanguage.googleapis.com
	BaseURL string

	// HTTPClient is the HTTP client to use. Defaults to a client with Timeout.
	HTTPClient *http.Client

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// AuthMode selects header or query parameter authentication.
	AuthMode AuthMode

	// MaxPromptLength is the longest accepted prompt in characters.
	MaxPromptLength int

	// MaxResponseBytes caps the size of a response body.
	MaxResponseBytes int64
}

// Option configures the Gemini codec and transport.
type Option func(*Config)

func newConfig(opts []Option) Config {
	cfg := Config{
		BaseURL:          DefaultBaseURL,
		Timeout:          DefaultTimeout,
		AuthMode:         AuthHeader,
		MaxPromptLength:  DefaultMaxPromptLength,
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxPromptLength <= 0 {
		cfg.MaxPromptLength = DefaultMaxPromptLength
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if cfg.AuthMode != AuthQuery {
		cfg.AuthMode = AuthHeader
	}
	return cfg
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithHeader adds an extra header to include in requests.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithTimeout sets the per-attempt request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithAuthMode selects how the API key is sent.
func WithAuthMode(mode AuthMode) Option {
	return func(c *Config) {
		c.AuthMode = mode
	}
}

// WithMaxPromptLength sets the longest accepted prompt.
func WithMaxPromptLength(n int) Option {
	return func(c *Config) {
		c.MaxPromptLength = n
	}
}

// WithMaxResponseBytes caps response bodies.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Config) {
		c.MaxResponseBytes = n
	}
}
