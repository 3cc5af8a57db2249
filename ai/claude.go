package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

const (
	claudeDefaultBaseURL = "https://api.anthropic.com/v1"
	claudeAPIVersion     = "2023-06-01"
	claudeDefaultMax     = 4096
)

// models in this family reject temperature and top_p together
var claudeNoTopPPrefixes = []string{"claude-opus-4-1"}

type claudeImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeBlock struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	Source *claudeImageSource `json:"source,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

// ClaudeRequest is the Messages API body
type ClaudeRequest struct {
	Model       string          `json:"model"`
	System      []claudeBlock   `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	TopK        int             `json:"top_k,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type claudeAdapter struct{}

func (a *claudeAdapter) Provider() models.APIProvider { return models.ProviderClaude }

func (a *claudeAdapter) BuildPayload(p Prompt, opts RequestOptions) (any, error) {
	req := &ClaudeRequest{
		Model:       opts.Model,
		MaxTokens:   opts.MaxOutputTokens,
		Temperature: opts.Temperature,
		TopK:        opts.TopK,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = claudeDefaultMax
	}
	if opts.TopP > 0 && claudeAcceptsTopP(opts.Model) {
		topP := opts.TopP
		req.TopP = &topP
	}
	if sys := p.SystemText(); sys != "" {
		req.System = []claudeBlock{{Type: "text", Text: sys}}
	}

	msgs := make([]claudeMessage, 0, len(p.Turns))
	for _, t := range p.Turns {
		msgs = append(msgs, claudeTurn(t))
	}
	req.Messages = mergeAdjacent(msgs,
		func(m claudeMessage) string { return m.Role },
		func(dst *claudeMessage, src claudeMessage) { dst.Content = append(dst.Content, src.Content...) },
	)
	return req, nil
}

func claudeAcceptsTopP(model string) bool {
	for _, prefix := range claudeNoTopPPrefixes {
		if strings.HasPrefix(model, prefix) {
			return false
		}
	}
	return true
}

func claudeTurn(t Turn) claudeMessage {
	role := "user"
	if t.Role == RoleAssistant {
		role = "assistant"
	}
	m := claudeMessage{Role: role}
	if t.Text != "" {
		m.Content = append(m.Content, claudeBlock{Type: "text", Text: t.Text})
	}
	if t.FromHistory() {
		for _, att := range MessageAttachments(t.Message) {
			if !att.IsImage() {
				continue
			}
			if role == "assistant" {
				m.Content = append(m.Content, claudeBlock{Type: "text", Text: imageSubstitute(t.Message)})
				continue
			}
			m.Content = append(m.Content, claudeBlock{
				Type:   "image",
				Source: &claudeImageSource{Type: "base64", MediaType: att.MimeType, Data: att.Data},
			})
		}
	}
	if len(m.Content) == 0 {
		m.Content = []claudeBlock{{Type: "text", Text: " "}}
	}
	return m
}

func (a *claudeAdapter) Endpoint(cfg models.APIConfig) (Endpoint, error) {
	if err := requireField(cfg.APIKey, "API key", a.Provider()); err != nil {
		return Endpoint{}, err
	}
	if err := requireField(cfg.Model, "model", a.Provider()); err != nil {
		return Endpoint{}, err
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", claudeAPIVersion)
	return Endpoint{URL: a.baseURL(cfg) + "/messages", Header: header}, nil
}

func (a *claudeAdapter) baseURL(cfg models.APIConfig) string {
	if base := trimBaseURL(cfg.BaseURL); base != "" {
		return base
	}
	return claudeDefaultBaseURL
}

func (a *claudeAdapter) ParseResponse(body []byte) (string, error) {
	var res claudeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", apperrors.NewProviderParseError("invalid response body: " + err.Error())
	}
	for _, block := range res.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	reason := res.StopReason
	if reason == "" {
		reason = "unknown reason"
	}
	return "", apperrors.NewProviderParseError("no text in response: " + reason)
}

func (a *claudeAdapter) ErrorMessage(body []byte) string {
	return envelopeMessage(body)
}

func (a *claudeAdapter) CountTokens(ctx context.Context, hc *http.Client, cfg models.APIConfig, payload any) (int, error) {
	req, ok := payload.(*ClaudeRequest)
	if !ok {
		return 0, fmt.Errorf("unexpected payload %T", payload)
	}
	ep, err := a.Endpoint(cfg)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(struct {
		Model    string          `json:"model"`
		System   []claudeBlock   `json:"system,omitempty"`
		Messages []claudeMessage `json:"messages"`
	}{req.Model, req.System, req.Messages})
	if err != nil {
		return 0, err
	}

	var out struct {
		InputTokens int `json:"input_tokens"`
	}
	if err := postJSON(ctx, hc, a.baseURL(cfg)+"/messages/count_tokens", ep.Header, body, &out); err != nil {
		return 0, err
	}
	return out.InputTokens, nil
}
