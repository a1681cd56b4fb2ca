package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/petal-labs/imagine/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Options{Format: "xml"}); err == nil {
		t.Error("New() error = nil for unknown format")
	}
	if _, err := New(&bytes.Buffer{}, Options{Level: "loud"}); err == nil {
		t.Error("New() error = nil for unknown level")
	}
}

func TestNewTextHasNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "k=v") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("output contains ANSI escapes: %q", out)
	}
}

func TestVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "warn", Verbose: true, Format: FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("details")
	if !strings.Contains(buf.String(), "details") {
		t.Error("debug message dropped with Verbose set")
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestTelemetryLogsLifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "debug", Format: FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	hook := NewTelemetry(logger)

	start := time.Now()
	hook.OnRequestStart(core.RequestStartEvent{Model: "m", MaxAttempts: 3, Start: start})
	hook.OnAttempt(core.AttemptEvent{Model: "m", Attempt: 1, Status: 503, Kind: core.KindTransportRetryable})
	hook.OnRetry(core.RetryEvent{Model: "m", Attempt: 1, Delay: time.Second, Kind: core.KindTransportRetryable})
	hook.OnRequestEnd(core.RequestEndEvent{
		Model: "m", State: core.StateExhausted, Attempts: 3, Start: start, End: start.Add(time.Second),
		Err: &core.RetriesExhaustedError{Attempts: 3, Last: errors.New("boom")},
	})

	lines := decodeLines(t, &buf)
	if len(lines) != 4 {
		t.Fatalf("got %d log lines, want 4", len(lines))
	}
	wantMsgs := []string{"generation started", "attempt finished", "retrying", "generation failed"}
	for i, want := range wantMsgs {
		if lines[i]["msg"] != want {
			t.Errorf("line %d msg = %v, want %q", i, lines[i]["msg"], want)
		}
		if lines[i]["model"] != "m" {
			t.Errorf("line %d model = %v", i, lines[i]["model"])
		}
	}
	if lines[1]["status"] != float64(503) {
		t.Errorf("attempt status = %v", lines[1]["status"])
	}
	if lines[3]["kind"] != string(core.KindRetriesExhausted) || lines[3]["level"] != "WARN" {
		t.Errorf("end line = %v", lines[3])
	}
}

func TestTelemetryAtInfoHidesAttempts(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&buf, Options{Format: FormatJSON})
	hook := NewTelemetry(logger)

	hook.OnAttempt(core.AttemptEvent{Model: "m", Attempt: 1})
	hook.OnRequestEnd(core.RequestEndEvent{Model: "m", State: core.StateSucceeded, Attempts: 1, Images: 1})

	if buf.Len() != 0 {
		t.Errorf("info logger wrote %q", buf.String())
	}
}

func TestAttrHelpers(t *testing.T) {
	if a := Err(errors.New("x")); a.Key != "error" || a.Value.String() != "x" {
		t.Errorf("Err() = %v", a)
	}
	if a := Err(nil); a.Value.String() != "" {
		t.Errorf("Err(nil) = %v", a)
	}
	if a := Model("gemini"); a.Key != "model" || a.Value.String() != "gemini" {
		t.Errorf("Model() = %v", a)
	}
}
