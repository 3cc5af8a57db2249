package ai

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

// ChatResponse is the provider-independent result of one call
type ChatResponse struct {
	ReactionDelay float64       `json:"reactionDelay"`
	Messages      []MessagePart `json:"messages"`
	NewMemory     string        `json:"newMemory,omitempty"`
}

// MessagePart is one bubble of a reply; delays are in milliseconds
type MessagePart struct {
	Delay                  float64                        `json:"delay"`
	Content                string                         `json:"content,omitempty"`
	Sticker                string                         `json:"sticker,omitempty"`
	ImageGenerationSetting *models.ImageGenerationSetting `json:"imageGenerationSetting,omitempty"`
}

// Text joins the text content of every part
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Messages))
	for _, p := range r.Messages {
		if c := strings.TrimSpace(p.Content); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n")
}

var speakerTagPattern = regexp.MustCompile(`(?i)\[\s*(?:from|name)\s*:[^\]\n]*\]\s*[:：\-–—]?\s*`)

// StripSpeakerTags removes [From: X] and [Name: X] tags models echo back,
// repeating on each line until nothing changes.
func StripSpeakerTags(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		cleaned := line
		for {
			next := speakerTagPattern.ReplaceAllString(cleaned, "")
			if next == cleaned {
				break
			}
			cleaned = next
		}
		if cleaned != line {
			lines[i] = strings.TrimSpace(cleaned)
		}
	}
	return strings.Join(lines, "\n")
}

// ParseOptions controls how raw model text becomes a ChatResponse
type ParseOptions struct {
	Structured bool
	// InChars is the length of the message being answered, used for line delays
	InChars int
	Delay   DelayModel
}

// ParseChatResponse turns cleaned model output into a ChatResponse
func ParseChatResponse(text string, opts ParseOptions) (*ChatResponse, error) {
	cleaned := StripSpeakerTags(text)
	if opts.Structured {
		return parseStructured(cleaned)
	}
	return splitLines(cleaned, opts), nil
}

type structuredResponse struct {
	ReactionDelay float64          `json:"reactionDelay"`
	Messages      []structuredPart `json:"messages"`
	NewMemory     *string          `json:"newMemory"`
}

type structuredPart struct {
	Delay                  float64                        `json:"delay"`
	Content                *string                        `json:"content"`
	Sticker                StickerRef                     `json:"sticker"`
	ImageGenerationSetting *models.ImageGenerationSetting `json:"imageGenerationSetting"`
}

// StickerRef accepts a sticker id written as a string or a number
type StickerRef string

// UnmarshalJSON implements json.Unmarshaler
func (s *StickerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = StickerRef(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = StickerRef(num.String())
	return nil
}

func parseStructured(text string) (*ChatResponse, error) {
	raw := stripCodeFence(text)

	var sr structuredResponse
	if err := json.Unmarshal([]byte(raw), &sr); err != nil {
		return nil, apperrors.NewProviderParseError("invalid structured response: " + err.Error())
	}

	res := &ChatResponse{
		ReactionDelay: clampNonNegative(sr.ReactionDelay),
		Messages:      make([]MessagePart, 0, len(sr.Messages)),
	}
	if sr.NewMemory != nil {
		res.NewMemory = strings.TrimSpace(*sr.NewMemory)
	}
	for _, p := range sr.Messages {
		part := MessagePart{
			Delay:                  clampNonNegative(p.Delay),
			Sticker:                strings.TrimSpace(string(p.Sticker)),
			ImageGenerationSetting: p.ImageGenerationSetting,
		}
		if p.Content != nil {
			part.Content = StripSpeakerTags(*p.Content)
		}
		if part.ImageGenerationSetting != nil && strings.TrimSpace(part.ImageGenerationSetting.Prompt) == "" {
			part.ImageGenerationSetting = nil
		}
		res.Messages = append(res.Messages, part)
	}
	return res, nil
}

func splitLines(text string, opts ParseOptions) *ChatResponse {
	res := &ChatResponse{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		res.Messages = append(res.Messages, MessagePart{
			Delay:   opts.Delay.Delay(opts.InChars, utf8.RuneCountInString(line)),
			Content: line,
		})
	}
	return res
}

// stripCodeFence removes a surrounding ```json fence if present
func stripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// FormatDelay renders a millisecond delay for logs
func FormatDelay(ms float64) string {
	return strconv.FormatFloat(ms/1000, 'f', 2, 64) + "s"
}
