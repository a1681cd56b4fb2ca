package core

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ModelID is a string identifier for a model.
type ModelID string

// DefaultModel is the image model used when no model is configured.
const DefaultModel ModelID = "gemini-2.5-flash-image"

// Generation parameter names accepted in GenerationRequest.Params.
const (
	ParamAspectRatio = "aspect_ratio" // string, e.g. "16:9"
	ParamSampleCount = "sample_count" // int, 1-4
	ParamImageSize   = "image_size"   // string, "1K", "2K" or "4K"
)

// GenerationRequest is a single prompt-to-image request.
// Build it with NewGenerationRequest and treat it as read-only afterwards.
type GenerationRequest struct {
	Model  ModelID
	Prompt string
	Params map[string]any
}

// NewGenerationRequest returns a request owning a private copy of params.
func NewGenerationRequest(model ModelID, prompt string, params map[string]any) *GenerationRequest {
	var cp map[string]any
	if len(params) > 0 {
		cp = make(map[string]any, len(params))
		for k, v := range params {
			cp[k] = v
		}
	}
	return &GenerationRequest{Model: model, Prompt: prompt, Params: cp}
}

// ParamKeys returns the parameter names in sorted order.
func (r *GenerationRequest) ParamKeys() []string {
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MIME types the pipeline can persist.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEWebP = "image/webp"
)

// NormalizeMIMEType lowercases a declared MIME type, strips parameters and
// maps known aliases. ok is false for types outside the recognized set.
func NormalizeMIMEType(mimeType string) (string, bool) {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	switch m {
	case MIMEPNG, MIMEJPEG, MIMEWebP:
		return m, true
	case "image/jpg", "image/pjpeg":
		return MIMEJPEG, true
	default:
		return m, false
	}
}

// ExtensionForMIME returns the file extension for a recognized MIME type.
func ExtensionForMIME(mimeType string) (string, bool) {
	m, ok := NormalizeMIMEType(mimeType)
	if !ok {
		return "", false
	}
	switch m {
	case MIMEPNG:
		return ".png", true
	case MIMEJPEG:
		return ".jpg", true
	default:
		return ".webp", true
	}
}

// ImagePayload is one decoded image.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

// Validate checks the payload invariants: non-empty bytes and a recognized MIME type.
func (p ImagePayload) Validate() error {
	if len(p.Data) == 0 {
		return &DecodeError{Reason: DecodeMissingField, Message: "image payload is empty"}
	}
	if _, ok := NormalizeMIMEType(p.MIMEType); !ok {
		return &DecodeError{Reason: DecodeUnsupportedMIME, Message: fmt.Sprintf("unsupported MIME type %q", p.MIMEType)}
	}
	return nil
}

// CandidateKind tags the outcome of a single response candidate.
type CandidateKind string

const (
	// CandidateImage carries at least one image.
	CandidateImage CandidateKind = "image"
	// CandidateText carries only text, typically a refusal or a description.
	CandidateText CandidateKind = "text"
	// CandidateBlocked was stopped by a safety or policy filter.
	CandidateBlocked CandidateKind = "blocked"
)

// Candidate is one generated result within a response.
type Candidate struct {
	Kind         CandidateKind
	Image        *ImagePayload
	Text         string
	FinishReason string
}

// GenerationResponse is the decoded API response.
type GenerationResponse struct {
	Candidates   []Candidate
	ModelVersion string
	ResponseID   string
	BlockReason  string
}

// Images returns every image payload in candidate order.
func (r *GenerationResponse) Images() []ImagePayload {
	var out []ImagePayload
	for _, c := range r.Candidates {
		if c.Kind == CandidateImage && c.Image != nil {
			out = append(out, *c.Image)
		}
	}
	return out
}

// First returns the first image payload. ok is false when there is none.
func (r *GenerationResponse) First() (ImagePayload, bool) {
	for _, c := range r.Candidates {
		if c.Kind == CandidateImage && c.Image != nil {
			return *c.Image, true
		}
	}
	return ImagePayload{}, false
}

// Text joins the text of all candidates.
func (r *GenerationResponse) Text() string {
	var parts []string
	for _, c := range r.Candidates {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// RawResponse is a successful HTTP exchange before decoding.
type RawResponse struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
}
