package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the machine-distinguishable category of a pipeline error.
type ErrorKind string

const (
	KindUnknown            ErrorKind = "unknown"
	KindEncode             ErrorKind = "encode"
	KindDecode             ErrorKind = "decode"
	KindTransportFatal     ErrorKind = "transport_fatal"
	KindTransportRetryable ErrorKind = "transport_retryable"
	KindRetriesExhausted   ErrorKind = "retries_exhausted"
	KindDeadlineExceeded   ErrorKind = "deadline_exceeded"
	KindCanceled           ErrorKind = "canceled"
	KindWrite              ErrorKind = "write"
)

// Category sentinels. Every pipeline error type unwraps to exactly one of these.
var (
	ErrEncode           = errors.New("encode error")
	ErrDecode           = errors.New("decode error")
	ErrFatal            = errors.New("fatal transport error")
	ErrRetryable        = errors.New("retryable transport error")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	ErrWrite            = errors.New("write error")
)

// Reason sentinels for decode and write failures.
var (
	ErrMissingField      = errors.New("missing image field")
	ErrMalformedBase64   = errors.New("malformed base64 payload")
	ErrUnsupportedMIME   = errors.New("unsupported MIME type")
	ErrMalformedEnvelope = errors.New("malformed response envelope")
	ErrPathNotWritable   = errors.New("path not writable")
	ErrIOFailure         = errors.New("I/O failure")
)

// Status sentinels for finer transport diagnostics.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("rate limited")
	ErrBadRequest      = errors.New("bad request")
	ErrNotFound        = errors.New("not found")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrServer          = errors.New("server error")
	ErrNetwork         = errors.New("network error")
	ErrTimeout         = errors.New("request timeout")
)

// Validation errors with actionable guidance.
var (
	ErrEmptyPrompt      = errors.New("prompt is empty: pass a non-empty --prompt")
	ErrPromptTooLong    = errors.New("prompt too long")
	ErrUnsupportedParam = errors.New("unsupported generation parameter")
	ErrInvalidParam     = errors.New("invalid generation parameter value")
	ErrModelRequired    = errors.New("model required: pass --model or set default_model in config")
)

// EncodeError reports a request that cannot be serialized.
type EncodeError struct {
	Param   string
	Message string
	Err     error
}

func (e *EncodeError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("encode request: %s: %s", e.Param, e.Message)
	}
	return "encode request: " + e.Message
}

func (e *EncodeError) Unwrap() []error {
	return nonNil(ErrEncode, e.Err)
}

// DecodeReason names why a response could not be decoded.
type DecodeReason string

const (
	DecodeMissingField      DecodeReason = "missing_field"
	DecodeMalformedBase64   DecodeReason = "malformed_base64"
	DecodeUnsupportedMIME   DecodeReason = "unsupported_mime"
	DecodeMalformedEnvelope DecodeReason = "malformed_envelope"
)

func (r DecodeReason) sentinel() error {
	switch r {
	case DecodeMissingField:
		return ErrMissingField
	case DecodeMalformedBase64:
		return ErrMalformedBase64
	case DecodeUnsupportedMIME:
		return ErrUnsupportedMIME
	case DecodeMalformedEnvelope:
		return ErrMalformedEnvelope
	}
	return nil
}

// DecodeError reports a response body without a usable image.
type DecodeError struct {
	Reason  DecodeReason
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode response (%s): %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("decode response (%s): %s", e.Reason, e.Message)
}

func (e *DecodeError) Unwrap() []error {
	return nonNil(ErrDecode, e.Reason.sentinel(), e.Err)
}

// TransportClass says whether a failed attempt may be retried.
type TransportClass string

const (
	TransportFatal     TransportClass = "fatal"
	TransportRetryable TransportClass = "retryable"
)

// TransportError is a failed single attempt against the remote API.
// Message never contains the credential.
type TransportError struct {
	Provider   string
	Class      TransportClass
	Status     int
	Code       string
	Message    string
	RequestID  string
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Class)
	case e.RequestID != "":
		return fmt.Sprintf("%s: %s (status=%d, code=%s, request_id=%s)",
			e.Provider, e.Message, e.Status, e.Code, e.RequestID)
	default:
		return fmt.Sprintf("%s: %s (status=%d, code=%s)",
			e.Provider, e.Message, e.Status, e.Code)
	}
}

func (e *TransportError) Unwrap() []error {
	class := ErrFatal
	if e.Class == TransportRetryable {
		class = ErrRetryable
	}
	return nonNil(class, e.Err)
}

// Retryable reports whether the attempt may be repeated.
func (e *TransportError) Retryable() bool {
	return e.Class == TransportRetryable
}

// RetriesExhaustedError is returned once every allowed attempt failed with a
// retryable error. Last is the final underlying cause.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() []error {
	return nonNil(ErrRetriesExhausted, e.Last)
}

// DeadlineExceededError is returned when the overall deadline expires during
// an attempt or while waiting for the next one.
type DeadlineExceededError struct {
	Attempts int
	Last     error
}

func (e *DeadlineExceededError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("deadline exceeded after %d attempts: %v", e.Attempts, e.Last)
	}
	return fmt.Sprintf("deadline exceeded after %d attempts", e.Attempts)
}

func (e *DeadlineExceededError) Unwrap() []error {
	return nonNil(ErrDeadlineExceeded, context.DeadlineExceeded, e.Last)
}

// WriteReason names why an image could not be persisted.
type WriteReason string

const (
	WritePathNotWritable WriteReason = "path_not_writable"
	WriteIOFailure       WriteReason = "io_failure"
)

// WriteError reports a failed output write.
type WriteError struct {
	Reason WriteReason
	Path   string
	Err    error
}

func (e *WriteError) Error() string {
	msg := "I/O failure"
	if e.Reason == WritePathNotWritable {
		msg = "path not writable"
	}
	if e.Err != nil {
		return fmt.Sprintf("write %s: %s: %v", e.Path, msg, e.Err)
	}
	return fmt.Sprintf("write %s: %s", e.Path, msg)
}

func (e *WriteError) Unwrap() []error {
	reason := ErrIOFailure
	if e.Reason == WritePathNotWritable {
		reason = ErrPathNotWritable
	}
	return nonNil(ErrWrite, reason, e.Err)
}

// KindOf classifies err. Wrapping errors take precedence over their causes,
// so an exhausted retry is never reported as its last transport error.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRetriesExhausted):
		return KindRetriesExhausted
	case errors.Is(err, ErrDeadlineExceeded):
		return KindDeadlineExceeded
	case errors.Is(err, ErrEncode):
		return KindEncode
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrWrite):
		return KindWrite
	case errors.Is(err, ErrFatal):
		return KindTransportFatal
	case errors.Is(err, ErrRetryable):
		return KindTransportRetryable
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindDeadlineExceeded
	default:
		return KindUnknown
	}
}

func nonNil(errs ...error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
