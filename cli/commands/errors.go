package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petal-labs/imagine/cli/config"
	"github.com/petal-labs/imagine/core"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitFatal      = 2
	ExitExhausted  = 3
	ExitWrite      = 4
	ExitDeadline   = 5
	ExitCodec      = 6
	ExitCanceled   = 130
)

// ErrNoCredential is returned when neither the environment nor the keystore
// holds an API key.
var ErrNoCredential = errors.New("no API key configured")

// validationErrors are user input problems, reported with ExitValidation even
// when they surface as encode errors.
var validationErrors = []error{
	core.ErrEmptyPrompt,
	core.ErrPromptTooLong,
	core.ErrUnsupportedParam,
	core.ErrInvalidParam,
	core.ErrModelRequired,
	config.ErrModelNotAllowed,
	ErrNoCredential,
}

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return ExitValidation
		}
	}

	switch core.KindOf(err) {
	case "":
		return ExitSuccess
	case core.KindRetriesExhausted:
		return ExitExhausted
	case core.KindDeadlineExceeded:
		return ExitDeadline
	case core.KindWrite:
		return ExitWrite
	case core.KindEncode, core.KindDecode:
		return ExitCodec
	case core.KindTransportFatal, core.KindTransportRetryable:
		return ExitFatal
	case core.KindCanceled:
		return ExitCanceled
	default:
		return ExitValidation
	}
}

// reportError writes err to stderr as text, or as a JSON document with --json.
func (a *App) reportError(err error) {
	if a.jsonOutput {
		enc := json.NewEncoder(a.stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"error": errorDetails(err)})
		return
	}

	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	var te *core.TransportError
	if errors.As(err, &te) && te.RequestID != "" {
		fmt.Fprintf(a.stderr, "  Provider: %s, Request ID: %s\n", te.Provider, te.RequestID)
	}
}

func errorDetails(err error) map[string]any {
	kind := string(core.KindOf(err))
	if exitCodeFor(err) == ExitValidation {
		kind = "validation"
	}
	details := map[string]any{
		"kind":      kind,
		"message":   err.Error(),
		"exit_code": exitCodeFor(err),
	}

	var te *core.TransportError
	if errors.As(err, &te) {
		details["provider"] = te.Provider
		if te.Status != 0 {
			details["status"] = te.Status
		}
		if te.RequestID != "" {
			details["request_id"] = te.RequestID
		}
	}
	var re *core.RetriesExhaustedError
	if errors.As(err, &re) {
		details["attempts"] = re.Attempts
	}
	var de *core.DeadlineExceededError
	if errors.As(err, &de) {
		details["attempts"] = de.Attempts
	}
	var dec *core.DecodeError
	if errors.As(err, &dec) {
		details["reason"] = dec.Reason
	}
	var we *core.WriteError
	if errors.As(err, &we) {
		details["reason"] = we.Reason
		details["path"] = we.Path
	}
	return details
}

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	return &exitError{code: code, err: err}
}
