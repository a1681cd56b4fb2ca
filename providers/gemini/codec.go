package gemini

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/petal-labs/imagine/core"
)

// AspectRatios lists the aspect ratios accepted by the image models.
var AspectRatios = []string{"1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9"}

// ImageSizes lists the output resolutions accepted by the pro image models.
var ImageSizes = []string{"1K", "2K", "4K"}

// MaxSampleCount is the largest accepted sample_count.
const MaxSampleCount = 4

// blockedFinishReasons are finish reasons that mean a policy filter stopped the candidate.
var blockedFinishReasons = map[string]bool{
	"SAFETY":                   true,
	"IMAGE_SAFETY":             true,
	"PROHIBITED_CONTENT":       true,
	"IMAGE_PROHIBITED_CONTENT": true,
	"BLOCKLIST":                true,
	"SPII":                     true,
	"RECITATION":               true,
	"IMAGE_RECITATION":         true,
}

// Codec maps core requests to the generateContent wire format and back.
// Codec is stateless and safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec creates a codec. Only WithBaseURL and WithMaxPromptLength affect it.
func NewCodec(opts ...Option) *Codec {
	return &Codec{config: newConfig(opts)}
}

// Endpoint returns the generateContent URL for model.
func (c *Codec) Endpoint(model core.ModelID) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.config.BaseURL, model)
}

// Encode validates req and serializes it. Identical requests encode to
// identical bytes.
func (c *Codec) Encode(req *core.GenerationRequest) ([]byte, error) {
	if req == nil {
		return nil, newEncodeError("", nil, "request is nil")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, newEncodeError("prompt", core.ErrEmptyPrompt, "prompt is empty")
	}
	if n := utf8.RuneCountInString(req.Prompt); n > c.config.MaxPromptLength {
		return nil, newEncodeError("prompt", core.ErrPromptTooLong,
			"prompt has %d characters, maximum is %d", n, c.config.MaxPromptLength)
	}

	genCfg := &geminiGenConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
	var imgCfg geminiImageConfig

	for _, key := range req.ParamKeys() {
		value := req.Params[key]
		switch key {
		case core.ParamAspectRatio:
			s, err := stringParam(key, value, AspectRatios, false)
			if err != nil {
				return nil, err
			}
			imgCfg.AspectRatio = s
		case core.ParamImageSize:
			s, err := stringParam(key, value, ImageSizes, true)
			if err != nil {
				return nil, err
			}
			imgCfg.ImageSize = s
		case core.ParamSampleCount:
			n, err := intParam(key, value, 1, MaxSampleCount)
			if err != nil {
				return nil, err
			}
			genCfg.CandidateCount = n
		default:
			return nil, newEncodeError(key, core.ErrUnsupportedParam, "unsupported parameter %q", key)
		}
	}
	if imgCfg != (geminiImageConfig{}) {
		genCfg.ImageConfig = &imgCfg
	}

	body, err := json.Marshal(&geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: genCfg,
	})
	if err != nil {
		return nil, newEncodeError("", err, "marshal request: %v", err)
	}
	return body, nil
}

func stringParam(key string, value any, allowed []string, upper bool) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", newEncodeError(key, core.ErrInvalidParam, "%s must be a string, got %T", key, value)
	}
	s = strings.TrimSpace(s)
	if upper {
		s = strings.ToUpper(s)
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", newEncodeError(key, core.ErrInvalidParam,
		"%s %q is not one of %s", key, s, strings.Join(allowed, ", "))
}

func intParam(key string, value any, lo, hi int) (int, error) {
	var n int
	switch v := value.(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		// JSON numbers arrive as float64.
		if v != math.Trunc(v) {
			return 0, newEncodeError(key, core.ErrInvalidParam, "%s must be an integer, got %v", key, v)
		}
		n = int(v)
	default:
		return 0, newEncodeError(key, core.ErrInvalidParam, "%s must be an integer, got %T", key, value)
	}
	if n < lo || n > hi {
		return 0, newEncodeError(key, core.ErrInvalidParam, "%s must be between %d and %d, got %d", key, lo, hi, n)
	}
	return n, nil
}

// Decode parses a successful generateContent body.
//
// Every inline image becomes its own image candidate, so a candidate
// carrying two images yields two entries. Candidates without an image are
// kept as text or blocked entries. An inline part that fails to decode is
// skipped. Decode fails only when the response holds no valid image: with the
// first part error when there was one, otherwise with missing_field.
func (c *Codec) Decode(body []byte) (*core.GenerationResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, newDecodeError(core.DecodeMalformedEnvelope, nil, "response body is not a JSON object")
	}

	var wire geminiResponse
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, newDecodeError(core.DecodeMalformedEnvelope, err, "parse response")
	}

	resp := &core.GenerationResponse{
		ModelVersion: wire.ModelVersion,
		ResponseID:   wire.ResponseID,
	}
	if wire.PromptFeedback != nil {
		resp.BlockReason = wire.PromptFeedback.BlockReason
	}

	var firstErr error
	for i, cand := range wire.Candidates {
		decoded, err := decodeCandidate(i, cand)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		resp.Candidates = append(resp.Candidates, decoded...)
	}

	if len(resp.Images()) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, newDecodeError(core.DecodeMissingField, nil, "%s", missingImageReason(resp))
	}
	return resp, nil
}

// decodeCandidate returns the entries for one candidate along with the first
// inline part error. Parts that fail are left out of the entries.
func decodeCandidate(index int, cand geminiCandidate) ([]core.Candidate, error) {
	var texts []string
	var images []*core.ImagePayload
	var partErr error

	if cand.Content != nil {
		for j, part := range cand.Content.Parts {
			if part.Thought {
				continue
			}
			if part.Text != "" {
				texts = append(texts, part.Text)
			}
			inline := part.inline()
			if inline == nil {
				continue
			}
			img, err := decodeInline(index, j, inline)
			if err != nil {
				if partErr == nil {
					partErr = err
				}
				continue
			}
			images = append(images, img)
		}
	}

	text := strings.Join(texts, " ")
	if len(images) == 0 {
		kind := core.CandidateText
		if blockedFinishReasons[cand.FinishReason] {
			kind = core.CandidateBlocked
		}
		return []core.Candidate{{Kind: kind, Text: text, FinishReason: cand.FinishReason}}, partErr
	}

	out := make([]core.Candidate, 0, len(images))
	for k, img := range images {
		c := core.Candidate{Kind: core.CandidateImage, Image: img, FinishReason: cand.FinishReason}
		if k == 0 {
			c.Text = text
		}
		out = append(out, c)
	}
	return out, partErr
}

func decodeInline(cand, part int, inline *geminiInlineData) (*core.ImagePayload, error) {
	if inline.Data == "" {
		return nil, newDecodeError(core.DecodeMissingField, nil,
			"candidate %d part %d: inline data is empty", cand, part)
	}
	mimeType, ok := core.NormalizeMIMEType(inline.mimeType())
	if !ok {
		return nil, newDecodeError(core.DecodeUnsupportedMIME, nil,
			"candidate %d part %d: unsupported MIME type %q", cand, part, inline.mimeType())
	}
	data, err := decodeBase64(inline.Data)
	if err != nil {
		return nil, newDecodeError(core.DecodeMalformedBase64, err,
			"candidate %d part %d", cand, part)
	}
	if len(data) == 0 {
		return nil, newDecodeError(core.DecodeMissingField, nil,
			"candidate %d part %d: inline data decodes to zero bytes", cand, part)
	}
	return &core.ImagePayload{MIMEType: mimeType, Data: data}, nil
}

// decodeBase64 accepts standard base64 with or without padding.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func missingImageReason(resp *core.GenerationResponse) string {
	const maxText = 200

	switch {
	case resp.BlockReason != "":
		return "prompt was blocked: " + resp.BlockReason
	case len(resp.Candidates) == 0:
		return "response contains no candidates"
	}

	first := resp.Candidates[0]
	if first.Kind == core.CandidateBlocked {
		return "candidate was blocked: " + first.FinishReason
	}
	if text := resp.Text(); text != "" {
		if utf8.RuneCountInString(text) > maxText {
			text = string([]rune(text)[:maxText]) + "..."
		}
		return "model returned text but no image: " + text
	}
	if first.FinishReason != "" {
		return "response contains no image (finish reason " + first.FinishReason + ")"
	}
	return "response contains no image"
}

var _ core.Codec = (*Codec)(nil)
