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

// RequestOptions are the sampling and output settings of one call
type RequestOptions struct {
	Model             string
	Temperature       float64
	TopP              float64
	TopK              int
	MaxOutputTokens   int
	Structured        bool
	IncludeImageField bool
}

// Endpoint is where a payload is POSTed and with which headers
type Endpoint struct {
	URL    string
	Header http.Header
}

// ProviderAdapter knows one provider's request shape, URL, auth and response shape
type ProviderAdapter interface {
	Provider() models.APIProvider
	// BuildPayload shapes an assembled prompt into the provider request body
	BuildPayload(p Prompt, opts RequestOptions) (any, error)
	// Endpoint resolves the generate URL and auth headers
	Endpoint(cfg models.APIConfig) (Endpoint, error)
	// ParseResponse extracts the reply text from a 2xx body
	ParseResponse(body []byte) (string, error)
	// ErrorMessage extracts the provider's own error message from a non-2xx body
	ErrorMessage(body []byte) string
	// CountTokens measures a payload built by BuildPayload
	CountTokens(ctx context.Context, hc *http.Client, cfg models.APIConfig, payload any) (int, error)
}

// NewAdapters returns one adapter per supported provider
func NewAdapters() map[models.APIProvider]ProviderAdapter {
	return map[models.APIProvider]ProviderAdapter{
		models.ProviderGemini:       newGeminiAdapter(false),
		models.ProviderVertexAI:     newGeminiAdapter(true),
		models.ProviderClaude:       &claudeAdapter{},
		models.ProviderOpenAI:       &openAIAdapter{provider: models.ProviderOpenAI, defaultBaseURL: "https://api.openai.com/v1"},
		models.ProviderGrok:         &openAIAdapter{provider: models.ProviderGrok, defaultBaseURL: "https://api.x.ai/v1"},
		models.ProviderOpenRouter:   &openAIAdapter{provider: models.ProviderOpenRouter, defaultBaseURL: "https://openrouter.ai/api/v1"},
		models.ProviderCustomOpenAI: &openAIAdapter{provider: models.ProviderCustomOpenAI},
	}
}

// errorEnvelope matches the {"error":{"message":...}} body shared by most providers
type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func envelopeMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return env.Message
}

func requireField(value, what string, provider models.APIProvider) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewConfigurationError(fmt.Sprintf("%s is not configured for %s", what, provider))
	}
	return nil
}

func trimBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// mergeAdjacent folds consecutive turns with the same role into one so
// providers that require alternating roles accept the history
func mergeAdjacent[T any](items []T, role func(T) string, merge func(dst *T, src T)) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if n := len(out); n > 0 && role(out[n-1]) == role(it) {
			merge(&out[n-1], it)
			continue
		}
		out = append(out, it)
	}
	return out
}
