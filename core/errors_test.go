package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{
		Provider:  "gemini",
		Class:     TransportFatal,
		Status:    401,
		RequestID: "req_123",
		Code:      "UNAUTHENTICATED",
		Message:   "API key not valid",
		Err:       ErrUnauthorized,
	}

	msg := err.Error()
	for _, want := range []string{"gemini", "401", "req_123", "UNAUTHENTICATED"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, should contain %q", msg, want)
		}
	}
}

func TestTransportErrorWithoutRequestID(t *testing.T) {
	err := &TransportError{Provider: "gemini", Class: TransportRetryable, Status: 429, Code: "RESOURCE_EXHAUSTED", Message: "quota"}
	if strings.Contains(err.Error(), "request_id") {
		t.Errorf("Error() = %q, should not contain request_id", err.Error())
	}
}

func TestTransportErrorClassSentinels(t *testing.T) {
	fatal := &TransportError{Provider: "gemini", Class: TransportFatal, Status: 403, Err: ErrUnauthorized}
	if !errors.Is(fatal, ErrFatal) {
		t.Error("fatal error should match ErrFatal")
	}
	if errors.Is(fatal, ErrRetryable) {
		t.Error("fatal error should not match ErrRetryable")
	}
	if !errors.Is(fatal, ErrUnauthorized) {
		t.Error("fatal error should match its status sentinel")
	}
	if fatal.Retryable() {
		t.Error("Retryable() = true for fatal error")
	}

	retry := &TransportError{Provider: "gemini", Class: TransportRetryable, Status: 503, Err: ErrServer}
	if !errors.Is(retry, ErrRetryable) || !retry.Retryable() {
		t.Error("retryable error should match ErrRetryable")
	}
}

func TestDecodeErrorReasons(t *testing.T) {
	tests := []struct {
		reason DecodeReason
		want   error
	}{
		{DecodeMissingField, ErrMissingField},
		{DecodeMalformedBase64, ErrMalformedBase64},
		{DecodeUnsupportedMIME, ErrUnsupportedMIME},
		{DecodeMalformedEnvelope, ErrMalformedEnvelope},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &DecodeError{Reason: tt.reason, Message: "x"})
			if !errors.Is(err, ErrDecode) {
				t.Error("should match ErrDecode")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("should match %v", tt.want)
			}
			var de *DecodeError
			if !errors.As(err, &de) || de.Reason != tt.reason {
				t.Errorf("errors.As reason = %v, want %v", de, tt.reason)
			}
		})
	}
}

func TestWriteErrorReasons(t *testing.T) {
	notWritable := &WriteError{Reason: WritePathNotWritable, Path: "/nope/out.png"}
	if !errors.Is(notWritable, ErrWrite) || !errors.Is(notWritable, ErrPathNotWritable) {
		t.Error("path error should match ErrWrite and ErrPathNotWritable")
	}
	if errors.Is(notWritable, ErrIOFailure) {
		t.Error("path error should not match ErrIOFailure")
	}

	cause := errors.New("disk full")
	ioErr := &WriteError{Reason: WriteIOFailure, Path: "out.png", Err: cause}
	if !errors.Is(ioErr, ErrIOFailure) || !errors.Is(ioErr, cause) {
		t.Error("I/O error should match ErrIOFailure and its cause")
	}
	if !strings.Contains(ioErr.Error(), "disk full") {
		t.Errorf("Error() = %q, should contain cause", ioErr.Error())
	}
}

func TestRetriesExhaustedKeepsLastCause(t *testing.T) {
	last := &TransportError{Provider: "gemini", Class: TransportRetryable, Status: 429, Err: ErrRateLimited}
	err := &RetriesExhaustedError{Attempts: 3, Last: last}

	if !errors.Is(err, ErrRetriesExhausted) {
		t.Error("should match ErrRetriesExhausted")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("should expose the last cause")
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("Error() = %q, should mention attempts", err.Error())
	}
}

func TestDeadlineExceededMatchesContext(t *testing.T) {
	err := &DeadlineExceededError{Attempts: 2}
	if !errors.Is(err, ErrDeadlineExceeded) || !errors.Is(err, context.DeadlineExceeded) {
		t.Error("should match both deadline sentinels")
	}
}

func TestKindOf(t *testing.T) {
	retryable := &TransportError{Class: TransportRetryable, Err: ErrServer}

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"encode", &EncodeError{Message: "empty"}, KindEncode},
		{"decode", &DecodeError{Reason: DecodeMissingField}, KindDecode},
		{"fatal", &TransportError{Class: TransportFatal}, KindTransportFatal},
		{"retryable", retryable, KindTransportRetryable},
		{"exhausted wraps retryable", &RetriesExhaustedError{Attempts: 3, Last: retryable}, KindRetriesExhausted},
		{"deadline wraps retryable", &DeadlineExceededError{Attempts: 1, Last: retryable}, KindDeadlineExceeded},
		{"write", &WriteError{Reason: WriteIOFailure}, KindWrite},
		{"canceled", fmt.Errorf("stop: %w", context.Canceled), KindCanceled},
		{"unknown", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
