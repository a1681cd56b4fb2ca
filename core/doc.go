// Package core defines the prompt-to-image pipeline: request and response
// types, the error taxonomy, credentials, and the retrying [Generator].
//
// # Generator
//
// A [Generator] combines a [Codec] (the remote API's wire contract) with a
// [Transport] (one authenticated HTTP attempt) and adds retry, deadline and
// telemetry handling:
//
//	codec := gemini.NewCodec()
//	transport := gemini.NewTransport()
//	gen := core.NewGenerator(codec, transport,
//	    core.WithRetryPolicy(core.NewRetryPolicy(core.RetryConfig{MaxAttempts: 4})),
//	    core.WithDeadline(2*time.Minute),
//	)
//	resp, err := gen.Generate(ctx, core.NewCredential(key),
//	    core.NewGenerationRequest(core.DefaultModel, "a lighthouse at dusk", nil))
//
// Each call owns its [RetryState]; nothing is shared between calls.
//
// # Retry
//
// Attempts move through the states idle, attempting and one terminal state:
// succeeded, exhausted, fatal_failed, deadline_exceeded or canceled.
// Fatal transport errors (400, 401, 403, 404, 413) end the call after one
// attempt. Retryable errors (429, 5xx, timeouts, connection failures) are
// retried with [Backoff] until [RetryConfig.MaxAttempts], then surface as
// [RetriesExhaustedError]. Encode and decode errors are never retried.
//
// # Errors
//
// Every pipeline error unwraps to a category sentinel such as [ErrDecode] or
// [ErrRetriesExhausted], and decode and write errors also to a reason
// sentinel such as [ErrMissingField]:
//
//	if errors.Is(err, core.ErrMissingField) {
//	    // the model answered with text only
//	}
//
// [KindOf] maps any error to an [ErrorKind] suitable for exit codes and
// machine-readable output.
//
// # Credentials
//
// API keys travel as [Credential], which redacts itself in fmt, JSON and text
// encodings. Transports call [Credential.Expose] to build the request and
// [Credential.Redact] to scrub error messages.
package core
