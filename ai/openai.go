package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

const (
	structuredSchemaName = "chat_response"
	fallbackEncoding     = "cl100k_base"
	// per-message framing overhead of the chat format
	tokensPerMessage = 4
	tokensPriming    = 3
)

type openAIAdapter struct {
	provider       models.APIProvider
	defaultBaseURL string
}

func (a *openAIAdapter) Provider() models.APIProvider { return a.provider }

func (a *openAIAdapter) BuildPayload(p Prompt, opts RequestOptions) (any, error) {
	req := &openai.ChatCompletionRequest{
		Model:       opts.Model,
		Temperature: float32(opts.Temperature),
		TopP:        float32(opts.TopP),
	}
	if a.provider == models.ProviderOpenAI {
		req.MaxCompletionTokens = opts.MaxOutputTokens
	} else {
		req.MaxTokens = opts.MaxOutputTokens
	}

	if opts.Structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   structuredSchemaName,
				Schema: BuildResponseSchema(SchemaOptions{IncludeImageField: opts.IncludeImageField}).RawStrictJSONSchema(),
				Strict: true,
			},
		}
	} else {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeText}
	}

	if sys := p.SystemText(); sys != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: sys})
	}
	for _, t := range p.Turns {
		req.Messages = append(req.Messages, openAITurn(t))
	}
	return req, nil
}

func openAITurn(t Turn) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	if t.Role == RoleAssistant {
		role = openai.ChatMessageRoleAssistant
	}

	var images []Attachment
	if t.FromHistory() {
		for _, att := range MessageAttachments(t.Message) {
			if att.IsImage() {
				images = append(images, att)
			}
		}
	}
	if len(images) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: t.Text}
	}
	if role == openai.ChatMessageRoleAssistant {
		return openai.ChatCompletionMessage{Role: role, Content: strings.TrimSpace(t.Text + "\n" + imageSubstitute(t.Message))}
	}

	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	if t.Text != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: t.Text})
	}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: img.DataURL()},
		})
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

func (a *openAIAdapter) Endpoint(cfg models.APIConfig) (Endpoint, error) {
	if err := requireField(cfg.APIKey, "API key", a.provider); err != nil {
		return Endpoint{}, err
	}
	if err := requireField(cfg.Model, "model", a.provider); err != nil {
		return Endpoint{}, err
	}
	base := a.baseURL(cfg)
	if base == "" {
		return Endpoint{}, apperrors.NewConfigurationError(fmt.Sprintf("base URL is not configured for %s", a.provider))
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	return Endpoint{URL: base + "/chat/completions", Header: header}, nil
}

func (a *openAIAdapter) baseURL(cfg models.APIConfig) string {
	if base := trimBaseURL(cfg.BaseURL); base != "" {
		return base
	}
	return a.defaultBaseURL
}

type openAIResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta *struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (a *openAIAdapter) ParseResponse(body []byte) (string, error) {
	var res openAIResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", apperrors.NewProviderParseError("invalid response body: " + err.Error())
	}
	if len(res.Choices) == 0 {
		return "", apperrors.NewProviderParseError("empty response body")
	}
	choice := res.Choices[0]
	if choice.Message != nil && choice.Message.Content != "" {
		return choice.Message.Content, nil
	}
	if choice.Delta != nil && choice.Delta.Content != "" {
		return choice.Delta.Content, nil
	}
	reason := "empty response body"
	if choice.FinishReason != "" {
		reason += " (finish_reason=" + choice.FinishReason + ")"
	}
	return "", apperrors.NewProviderParseError(reason)
}

func (a *openAIAdapter) ErrorMessage(body []byte) string {
	var res openai.ErrorResponse
	if err := json.Unmarshal(body, &res); err == nil && res.Error != nil && res.Error.Message != "" {
		return res.Error.Message
	}
	return envelopeMessage(body)
}

func (a *openAIAdapter) CountTokens(ctx context.Context, hc *http.Client, cfg models.APIConfig, payload any) (int, error) {
	req, ok := payload.(*openai.ChatCompletionRequest)
	if !ok {
		return 0, fmt.Errorf("unexpected payload %T", payload)
	}
	if a.provider == models.ProviderGrok {
		return a.countGrok(ctx, hc, cfg, req)
	}
	return countTiktoken(req)
}

func countTiktoken(req *openai.ChatCompletionRequest) (int, error) {
	enc, err := tiktoken.EncodingForModel(req.Model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return 0, err
		}
	}

	total := tokensPriming
	for _, m := range req.Messages {
		total += tokensPerMessage
		total += len(enc.Encode(m.Role, nil, nil))
		total += len(enc.Encode(messageText(m), nil, nil))
	}
	return total, nil
}

// countGrok asks xAI's tokenizer, which is the only accurate count for Grok models
func (a *openAIAdapter) countGrok(ctx context.Context, hc *http.Client, cfg models.APIConfig, req *openai.ChatCompletionRequest) (int, error) {
	ep, err := a.Endpoint(cfg)
	if err != nil {
		return 0, err
	}
	texts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		texts = append(texts, messageText(m))
	}
	body, err := json.Marshal(map[string]string{"model": req.Model, "text": strings.Join(texts, "\n")})
	if err != nil {
		return 0, err
	}

	var out struct {
		TokenIDs []json.RawMessage `json:"token_ids"`
	}
	if err := postJSON(ctx, hc, a.baseURL(cfg)+"/tokenize-text", ep.Header, body, &out); err != nil {
		return 0, err
	}
	return len(out.TokenIDs), nil
}

func messageText(m openai.ChatCompletionMessage) string {
	if len(m.MultiContent) == 0 {
		return m.Content
	}
	var texts []string
	for _, p := range m.MultiContent {
		if p.Type == openai.ChatMessagePartTypeText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
