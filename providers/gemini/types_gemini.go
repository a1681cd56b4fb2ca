// Package gemini implements the Gemini generateContent image API: a pure
// request/response codec and a single-attempt HTTP transport.
package gemini

// geminiRequest represents a request to the Gemini generateContent API.
type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig"`
}

// geminiContent represents a content block (user or model turn).
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

// geminiPart represents a part within content (text or inline image).
// Responses have been observed with both camelCase and snake_case inline data.
type geminiPart struct {
	Text            string            `json:"text,omitempty"`
	Thought         bool              `json:"thought,omitempty"`
	InlineData      *geminiInlineData `json:"inlineData,omitempty"`
	InlineDataSnake *geminiInlineData `json:"inline_data,omitempty"`
}

// inline returns whichever inline data field is set.
func (p geminiPart) inline() *geminiInlineData {
	if p.InlineData != nil {
		return p.InlineData
	}
	return p.InlineDataSnake
}

// geminiInlineData represents inline image data in a response.
type geminiInlineData struct {
	MimeType      string `json:"mimeType,omitempty"`
	MimeTypeSnake string `json:"mime_type,omitempty"`
	Data          string `json:"data"` // base64 encoded
}

func (d *geminiInlineData) mimeType() string {
	if d.MimeType != "" {
		return d.MimeType
	}
	return d.MimeTypeSnake
}

// geminiGenConfig holds image generation config.
type geminiGenConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	CandidateCount     int                `json:"candidateCount,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

// geminiImageConfig holds image-specific generation config.
// imageSize is only honored by the pro image models.
type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

// geminiResponse represents a response from the Gemini API.
type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string                `json:"modelVersion,omitempty"`
	ResponseID     string                `json:"responseId,omitempty"`
}

// geminiCandidate represents a response candidate.
type geminiCandidate struct {
	Content      *geminiContent `json:"content,omitempty"`
	FinishReason string         `json:"finishReason,omitempty"`
}

// geminiPromptFeedback is set when the prompt itself was rejected.
type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}
