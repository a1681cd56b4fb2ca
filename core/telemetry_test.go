package core

import (
	"testing"
	"time"
)

func TestRequestEndEventDuration(t *testing.T) {
	start := time.Now()
	event := RequestEndEvent{
		Model: DefaultModel,
		State: StateSucceeded,
		Start: start,
		End:   start.Add(1500 * time.Millisecond),
	}

	if got := event.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", got)
	}
}

func TestNoopTelemetryHookDoesNotPanic(t *testing.T) {
	var hook TelemetryHook = NoopTelemetryHook{}
	hook.OnRequestStart(RequestStartEvent{Model: DefaultModel})
	hook.OnAttempt(AttemptEvent{Attempt: 1, Status: 500})
	hook.OnRetry(RetryEvent{Attempt: 1, Delay: time.Second})
	hook.OnRequestEnd(RequestEndEvent{State: StateExhausted})
}

func TestTelemetryEventsOmitSecrets(t *testing.T) {
	// Telemetry must never see the credential or the prompt.
	transport := &scriptedTransport{statuses: []int{503, 200}}
	hook := &recordingHook{}
	sleeper := &recordingSleeper{}
	gen := newTestGenerator(transport, 3, sleeper, WithTelemetry(hook))

	req := NewGenerationRequest(DefaultModel, "a private prompt", nil)
	if _, err := gen.Generate(t.Context(), NewCredential("AIzaSecret"), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(hook.retries) != 1 {
		t.Fatalf("retries = %d, want 1", len(hook.retries))
	}
	if hook.retries[0].Kind != KindTransportRetryable {
		t.Errorf("retry kind = %q", hook.retries[0].Kind)
	}
	if hook.attempts[1].Kind != "" {
		t.Errorf("successful attempt kind = %q, want empty", hook.attempts[1].Kind)
	}
	if hook.ends[0].Attempts != 2 || hook.ends[0].Err != nil {
		t.Errorf("end event = %+v", hook.ends[0])
	}
}
