package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Codec is the versioned wire contract of a remote image API.
// Implementations are pure: no I/O, no shared state.
type Codec interface {
	// Endpoint returns the URL that generates images with model.
	Endpoint(model ModelID) string

	// Encode serializes req. Identical input yields identical bytes.
	Encode(req *GenerationRequest) ([]byte, error)

	// Decode parses a successful response body.
	Decode(body []byte) (*GenerationResponse, error)
}

// Transport performs exactly one authenticated request.
// Failures are returned as *TransportError classified fatal or retryable.
// Transports must not retry internally.
type Transport interface {
	Send(ctx context.Context, endpoint string, body []byte, cred Credential) (*RawResponse, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// State is a step of the retry state machine.
type State string

const (
	StateIdle             State = "idle"
	StateAttempting       State = "attempting"
	StateSucceeded        State = "succeeded"
	StateExhausted        State = "exhausted"
	StateFatalFailed      State = "fatal_failed"
	StateDeadlineExceeded State = "deadline_exceeded"
	StateCanceled         State = "canceled"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s != StateIdle && s != StateAttempting
}

// RetryState is the per-call bookkeeping of one orchestrated generation.
// It is never shared between calls.
type RetryState struct {
	State     State
	Attempt   int // attempts started so far
	LastError error
	NextDelay time.Duration
}

// Generator runs the generation pipeline: encode, send with retry, decode.
// A Generator holds no per-call state and is safe for concurrent use when its
// Transport is.
type Generator struct {
	codec     Codec
	transport Transport
	retry     RetryPolicy
	deadline  time.Duration
	telemetry TelemetryHook
	sleep     Sleeper
	now       func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(r RetryPolicy) GeneratorOption {
	return func(g *Generator) {
		if r != nil {
			g.retry = r
		}
	}
}

// WithTelemetry sets the telemetry hook.
func WithTelemetry(h TelemetryHook) GeneratorOption {
	return func(g *Generator) {
		if h != nil {
			g.telemetry = h
		}
	}
}

// WithDeadline bounds the whole call, retries included.
// It overrides RetryConfig.Deadline.
func WithDeadline(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.deadline = d
		}
	}
}

// WithSleeper replaces the wait between attempts, mainly for tests.
func WithSleeper(s Sleeper) GeneratorOption {
	return func(g *Generator) {
		if s != nil {
			g.sleep = s
		}
	}
}

// NewGenerator wires a codec and a transport into a Generator.
func NewGenerator(codec Codec, transport Transport, opts ...GeneratorOption) *Generator {
	g := &Generator{
		codec:     codec,
		transport: transport,
		retry:     DefaultRetryPolicy(),
		telemetry: NoopTelemetryHook{},
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one request to completion and returns the decoded response.
func (g *Generator) Generate(ctx context.Context, cred Credential, req *GenerationRequest) (*GenerationResponse, error) {
	resp, _, err := g.Run(ctx, cred, req)
	return resp, err
}

// Run is Generate that also reports the final RetryState.
func (g *Generator) Run(ctx context.Context, cred Credential, req *GenerationRequest) (*GenerationResponse, RetryState, error) {
	st := RetryState{State: StateIdle}
	start := g.now()

	var model ModelID
	if req != nil {
		model = req.Model
	}
	g.telemetry.OnRequestStart(RequestStartEvent{
		Model:       model,
		MaxAttempts: g.retry.MaxAttempts(),
		Start:       start,
	})

	resp, err := g.run(ctx, cred, req, &st)

	end := RequestEndEvent{
		Model:    model,
		State:    st.State,
		Attempts: st.Attempt,
		Start:    start,
		End:      g.now(),
		Err:      err,
	}
	if resp != nil {
		end.Images = len(resp.Images())
	}
	g.telemetry.OnRequestEnd(end)

	return resp, st, err
}

func (g *Generator) run(ctx context.Context, cred Credential, req *GenerationRequest, st *RetryState) (*GenerationResponse, error) {
	if req == nil {
		st.State = StateFatalFailed
		return nil, &EncodeError{Message: "request is nil"}
	}
	if req.Model == "" {
		st.State = StateFatalFailed
		return nil, &EncodeError{Param: "model", Message: "model is empty", Err: ErrModelRequired}
	}

	body, err := g.codec.Encode(req)
	if err != nil {
		st.State = StateFatalFailed
		st.LastError = err
		return nil, err
	}
	endpoint := g.codec.Endpoint(req.Model)

	if d := g.effectiveDeadline(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	for attempt := 0; ; attempt++ {
		st.State = StateAttempting
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, g.interrupted(st, ctxErr)
		}
		st.Attempt = attempt + 1

		started := g.now()
		raw, err := g.transport.Send(ctx, endpoint, body, cred)
		if err == nil && raw == nil {
			err = &TransportError{Provider: "transport", Class: TransportFatal, Message: "empty response", Err: ErrServer}
		}

		ev := AttemptEvent{Model: req.Model, Attempt: st.Attempt, Duration: g.now().Sub(started), Kind: KindOf(err)}
		if raw != nil {
			ev.Status = raw.Status
		}
		var te *TransportError
		if errors.As(err, &te) {
			ev.Status = te.Status
		}
		g.telemetry.OnAttempt(ev)

		if err == nil {
			resp, decErr := g.codec.Decode(raw.Body)
			if decErr != nil {
				st.State = StateFatalFailed
				st.LastError = decErr
				return nil, decErr
			}
			st.State = StateSucceeded
			st.LastError = nil
			return resp, nil
		}

		st.LastError = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, g.interrupted(st, ctxErr)
		}
		if !IsRetryable(err) {
			st.State = StateFatalFailed
			return nil, err
		}

		delay, ok := g.retry.NextDelay(attempt, err)
		if !ok {
			st.State = StateExhausted
			return nil, &RetriesExhaustedError{Attempts: st.Attempt, Last: err}
		}
		st.NextDelay = delay
		g.telemetry.OnRetry(RetryEvent{Model: req.Model, Attempt: st.Attempt, Delay: delay, Kind: KindOf(err)})

		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return nil, g.interrupted(st, sleepErr)
		}
	}
}

// interrupted ends the call after the context was canceled or timed out.
func (g *Generator) interrupted(st *RetryState, ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		st.State = StateDeadlineExceeded
		return &DeadlineExceededError{Attempts: st.Attempt, Last: st.LastError}
	}
	st.State = StateCanceled
	return fmt.Errorf("generation canceled after %d attempts: %w", st.Attempt, ctxErr)
}

func (g *Generator) effectiveDeadline() time.Duration {
	if g.deadline > 0 {
		return g.deadline
	}
	if b, ok := g.retry.(*Backoff); ok {
		return b.cfg.Deadline
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
