package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	vertexDefaultRegion  = "us-central1"
)

var geminiSafetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	Thought    bool              `json:"thought,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64        `json:"temperature"`
	TopP             float64        `json:"topP,omitempty"`
	TopK             int            `json:"topK,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GeminiRequest is the generateContent body shared by Gemini and Vertex AI
type GeminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SafetySettings    []geminiSafetySetting  `json:"safetySettings,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiAdapter struct {
	vertex bool

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func newGeminiAdapter(vertex bool) *geminiAdapter {
	return &geminiAdapter{vertex: vertex, clients: make(map[string]*genai.Client)}
}

func (a *geminiAdapter) Provider() models.APIProvider {
	if a.vertex {
		return models.ProviderVertexAI
	}
	return models.ProviderGemini
}

func (a *geminiAdapter) BuildPayload(p Prompt, opts RequestOptions) (any, error) {
	req := &GeminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			TopK:            opts.TopK,
			MaxOutputTokens: opts.MaxOutputTokens,
		},
	}
	if sys := p.SystemText(); sys != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: sys}}}
	}
	if opts.Structured {
		req.GenerationConfig.ResponseMimeType = "application/json"
		req.GenerationConfig.ResponseSchema = BuildResponseSchema(SchemaOptions{IncludeImageField: opts.IncludeImageField}).Gemini()
	}
	for _, c := range geminiSafetyCategories {
		req.SafetySettings = append(req.SafetySettings, geminiSafetySetting{Category: c, Threshold: "BLOCK_NONE"})
	}

	contents := make([]geminiContent, 0, len(p.Turns))
	for _, t := range p.Turns {
		contents = append(contents, geminiTurn(t))
	}
	req.Contents = mergeAdjacent(contents,
		func(c geminiContent) string { return c.Role },
		func(dst *geminiContent, src geminiContent) { dst.Parts = append(dst.Parts, src.Parts...) },
	)
	return req, nil
}

func geminiTurn(t Turn) geminiContent {
	role := "user"
	if t.Role == RoleAssistant {
		role = "model"
	}
	c := geminiContent{Role: role}
	if t.Text != "" {
		c.Parts = append(c.Parts, geminiPart{Text: t.Text})
	}
	if !t.FromHistory() {
		return c
	}

	for _, att := range MessageAttachments(t.Message) {
		if role == "model" && att.IsImage() {
			c.Parts = append(c.Parts, geminiPart{Text: imageSubstitute(t.Message)})
			continue
		}
		c.Parts = append(c.Parts, geminiPart{InlineData: &geminiInlineData{MimeType: att.MimeType, Data: att.Data}})
	}
	if role == "user" {
		for _, link := range VideoLinks(t.Message.Content) {
			c.Parts = append(c.Parts, geminiPart{FileData: &geminiFileData{MimeType: "video/*", FileURI: link}})
		}
	}
	if len(c.Parts) == 0 {
		c.Parts = []geminiPart{{Text: " "}}
	}
	return c
}

func (a *geminiAdapter) Endpoint(cfg models.APIConfig) (Endpoint, error) {
	if err := requireField(cfg.Model, "model", a.Provider()); err != nil {
		return Endpoint{}, err
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")

	if !a.vertex {
		if err := requireField(cfg.APIKey, "API key", a.Provider()); err != nil {
			return Endpoint{}, err
		}
		header.Set("x-goog-api-key", cfg.APIKey)
		return Endpoint{URL: a.modelURL(cfg) + ":generateContent", Header: header}, nil
	}

	if err := requireField(cfg.ProjectID, "project id", a.Provider()); err != nil {
		return Endpoint{}, err
	}
	if err := requireField(cfg.AccessToken, "access token", a.Provider()); err != nil {
		return Endpoint{}, err
	}
	header.Set("Authorization", "Bearer "+cfg.AccessToken)
	return Endpoint{URL: a.modelURL(cfg) + ":generateContent", Header: header}, nil
}

// modelURL is the resource path that :generateContent and :countTokens hang off
func (a *geminiAdapter) modelURL(cfg models.APIConfig) string {
	if !a.vertex {
		base := trimBaseURL(cfg.BaseURL)
		if base == "" {
			base = geminiDefaultBaseURL
		}
		return base + "/models/" + cfg.Model
	}

	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = vertexDefaultRegion
	}
	base := trimBaseURL(cfg.BaseURL)
	if base == "" {
		host := location + "-aiplatform.googleapis.com"
		if location == "global" {
			host = "aiplatform.googleapis.com"
		}
		base = "https://" + host + "/v1"
	}
	return fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s", base, cfg.ProjectID, location, cfg.Model)
}

func (a *geminiAdapter) ParseResponse(body []byte) (string, error) {
	var res geminiResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", apperrors.NewProviderParseError("invalid response body: " + err.Error())
	}

	reason := ""
	if res.PromptFeedback != nil {
		reason = res.PromptFeedback.BlockReason
	}
	if len(res.Candidates) > 0 {
		var texts []string
		for _, part := range res.Candidates[0].Content.Parts {
			if part.Text != "" && !part.Thought {
				texts = append(texts, part.Text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, ""), nil
		}
		if reason == "" {
			reason = res.Candidates[0].FinishReason
		}
	}
	if reason == "" {
		reason = "unknown reason"
	}
	return "", apperrors.NewProviderParseError("no text in response: " + reason)
}

func (a *geminiAdapter) ErrorMessage(body []byte) string {
	return envelopeMessage(body)
}

func (a *geminiAdapter) CountTokens(ctx context.Context, hc *http.Client, cfg models.APIConfig, payload any) (int, error) {
	req, ok := payload.(*GeminiRequest)
	if !ok {
		return 0, fmt.Errorf("unexpected payload %T", payload)
	}
	if a.vertex {
		return a.countVertex(ctx, hc, cfg, req)
	}
	return a.countGemini(ctx, hc, cfg, req)
}

// countGemini goes through the genai SDK; the Gemini API count endpoint does
// not take a system instruction so it is counted as a leading user turn
func (a *geminiAdapter) countGemini(ctx context.Context, hc *http.Client, cfg models.APIConfig, req *GeminiRequest) (int, error) {
	client, err := a.client(ctx, hc, cfg)
	if err != nil {
		return 0, err
	}

	contents := make([]*genai.Content, 0, len(req.Contents)+1)
	if req.SystemInstruction != nil {
		contents = append(contents, toGenaiContent(geminiContent{Role: "user", Parts: req.SystemInstruction.Parts}))
	}
	for _, c := range req.Contents {
		contents = append(contents, toGenaiContent(c))
	}

	res, err := client.Models.CountTokens(ctx, cfg.Model, contents, nil)
	if err != nil {
		return 0, err
	}
	return int(res.TotalTokens), nil
}

func (a *geminiAdapter) client(ctx context.Context, hc *http.Client, cfg models.APIConfig) (*genai.Client, error) {
	key := cfg.APIKey + "|" + cfg.BaseURL
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[key]; ok {
		return c, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if base := trimBaseURL(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{
			BaseURL:    strings.TrimSuffix(base, "/v1beta") + "/",
			APIVersion: "v1beta",
		}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	a.clients[key] = c
	return c, nil
}

func toGenaiContent(c geminiContent) *genai.Content {
	parts := make([]*genai.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch {
		case p.InlineData != nil:
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				continue
			}
			parts = append(parts, genai.NewPartFromBytes(data, p.InlineData.MimeType))
		case p.FileData != nil:
			parts = append(parts, genai.NewPartFromURI(p.FileData.FileURI, p.FileData.MimeType))
		default:
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
	}
	role := genai.Role(genai.RoleUser)
	if c.Role == "model" {
		role = genai.Role(genai.RoleModel)
	}
	return genai.NewContentFromParts(parts, role)
}

func (a *geminiAdapter) countVertex(ctx context.Context, hc *http.Client, cfg models.APIConfig, req *GeminiRequest) (int, error) {
	ep, err := a.Endpoint(cfg)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(struct {
		Contents          []geminiContent `json:"contents"`
		SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	}{req.Contents, req.SystemInstruction})
	if err != nil {
		return 0, err
	}

	var out struct {
		TotalTokens int `json:"totalTokens"`
	}
	if err := postJSON(ctx, hc, a.modelURL(cfg)+":countTokens", ep.Header, body, &out); err != nil {
		return 0, err
	}
	return out.TotalTokens, nil
}

// postJSON sends body and decodes a 2xx JSON reply into out
func postJSON(ctx context.Context, hc *http.Client, url string, header http.Header, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header = header.Clone()
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewProviderHTTPError(resp.StatusCode, envelopeMessage(raw))
	}
	return json.Unmarshal(raw, out)
}
