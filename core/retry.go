package core

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy decides whether and when a failed attempt is repeated.
type RetryPolicy interface {
	// NextDelay returns the wait before the next attempt and whether one is allowed.
	// attempt is the zero-based index of the attempt that just failed.
	NextDelay(attempt int, err error) (delay time.Duration, ok bool)

	// MaxAttempts returns the total number of attempts, including the first.
	MaxAttempts() int
}

// RandSource yields values in [0, 1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// RetryConfig configures exponential backoff.
type RetryConfig struct {
	MaxAttempts int           // Total attempts including the first (default: 3)
	BaseDelay   time.Duration // Delay before the first retry (default: 500ms)
	Multiplier  float64       // Growth factor per attempt (default: 2.0)
	Jitter      float64       // Jitter fraction 0.0-1.0 (default: 0.2)
	MaxDelay    time.Duration // Cap for a single delay (default: 30s)
	Deadline    time.Duration // Overall deadline for all attempts, 0 for none
	Rand        RandSource    // Jitter source (default: math/rand)
}

// DefaultRetryConfig returns the defaults used when a field is unset.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      0.2,
		MaxDelay:    30 * time.Second,
	}
}

// DefaultRetryPolicy returns backoff with DefaultRetryConfig.
func DefaultRetryPolicy() *Backoff {
	return NewRetryPolicy(DefaultRetryConfig())
}

// NewRetryPolicy creates exponential backoff, replacing invalid fields with defaults.
func NewRetryPolicy(cfg RetryConfig) *Backoff {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = def.Jitter
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Deadline < 0 {
		cfg.Deadline = 0
	}
	if cfg.Rand == nil {
		cfg.Rand = globalRand{}
	}
	return &Backoff{cfg: cfg}
}

// Backoff is exponential backoff with symmetric jitter:
// delay = base * multiplier^attempt * (1 ± jitter), capped at MaxDelay.
type Backoff struct {
	cfg RetryConfig
}

// Config returns the effective configuration.
func (b *Backoff) Config() RetryConfig {
	return b.cfg
}

// MaxAttempts implements RetryPolicy.
func (b *Backoff) MaxAttempts() int {
	return b.cfg.MaxAttempts
}

// Expected returns the delay before jitter for the given failed attempt.
func (b *Backoff) Expected(attempt int) time.Duration {
	return b.cap(b.raw(attempt))
}

// Bounds returns the range a jittered delay for attempt falls in.
// The sequence of bounds is deterministic for a given configuration.
func (b *Backoff) Bounds(attempt int) (lo, hi time.Duration) {
	raw := b.raw(attempt)
	return b.cap(raw * (1 - b.cfg.Jitter)), b.cap(raw * (1 + b.cfg.Jitter))
}

// NextDelay implements RetryPolicy.
func (b *Backoff) NextDelay(attempt int, err error) (time.Duration, bool) {
	if attempt+1 >= b.cfg.MaxAttempts {
		return 0, false
	}
	if !IsRetryable(err) {
		return 0, false
	}

	delay := b.raw(attempt)
	if b.cfg.Jitter > 0 {
		delay += (b.cfg.Rand.Float64()*2 - 1) * delay * b.cfg.Jitter
	}

	// Honor a longer server-requested wait.
	var te *TransportError
	if errors.As(err, &te) && float64(te.RetryAfter) > delay {
		delay = float64(te.RetryAfter)
	}

	return b.cap(delay), true
}

func (b *Backoff) raw(attempt int) float64 {
	if attempt < 0 {
		attempt = 0
	}
	return float64(b.cfg.BaseDelay) * math.Pow(b.cfg.Multiplier, float64(attempt))
}

func (b *Backoff) cap(delay float64) time.Duration {
	if delay > float64(b.cfg.MaxDelay) {
		delay = float64(b.cfg.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ErrFatal) || errors.Is(err, ErrEncode) || errors.Is(err, ErrDecode) {
		return false
	}
	if errors.Is(err, ErrRetryable) {
		return true
	}

	// Bare sentinels from callers that do not build a TransportError.
	for _, sentinel := range []error{ErrNetwork, ErrTimeout, ErrRateLimited, ErrServer} {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
