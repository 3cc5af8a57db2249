package models

// PromptType decides how a prompt item is resolved and whether it is included
type PromptType string

const (
	PromptTypePlain                  PromptType = "plain"
	PromptTypePlainStructured        PromptType = "plain-structured"
	PromptTypePlainUnstructured      PromptType = "plain-unstructured"
	PromptTypePlainGroup             PromptType = "plain-group"
	PromptTypeChat                   PromptType = "chat"
	PromptTypeLorebook               PromptType = "lorebook"
	PromptTypeAuthorNote             PromptType = "authornote"
	PromptTypeMemory                 PromptType = "memory"
	PromptTypeUserDescription        PromptType = "userDescription"
	PromptTypeCharacterPrompt        PromptType = "characterPrompt"
	PromptTypeExtraSystemInstruction PromptType = "extraSystemInstruction"
	PromptTypeImageGeneration        PromptType = "image-generation"
)

type PromptRole string

const (
	PromptRoleSystem    PromptRole = "system"
	PromptRoleUser      PromptRole = "user"
	PromptRoleAssistant PromptRole = "assistant"
)

// PromptItem is one configurable fragment of an outbound request
type PromptItem struct {
	Name    string     `json:"name"`
	Type    PromptType `json:"type"`
	Role    PromptRole `json:"role,omitempty"`
	Content string     `json:"content,omitempty"`
}

// APIProvider names a chat completion backend
type APIProvider string

const (
	ProviderGemini       APIProvider = "gemini"
	ProviderVertexAI     APIProvider = "vertexai"
	ProviderClaude       APIProvider = "claude"
	ProviderOpenAI       APIProvider = "openai"
	ProviderGrok         APIProvider = "grok"
	ProviderOpenRouter   APIProvider = "openrouter"
	ProviderCustomOpenAI APIProvider = "customOpenAI"
)

// APIConfig holds credentials and model selection for one provider
type APIConfig struct {
	APIKey       string   `json:"apiKey,omitempty"`
	Model        string   `json:"model"`
	BaseURL      string   `json:"baseUrl,omitempty"`
	ProjectID    string   `json:"projectId,omitempty"`
	Location     string   `json:"location,omitempty"`
	AccessToken  string   `json:"accessToken,omitempty"`
	CustomModels []string `json:"customModels,omitempty"`
}

// Settings is the single persisted settings row
type Settings struct {
	ID                  uint                      `json:"-" gorm:"primaryKey"`
	APIProvider         APIProvider               `json:"apiProvider"`
	APIConfigs          map[APIProvider]APIConfig `json:"apiConfigs" gorm:"serializer:json"`
	Prompts             []PromptItem              `json:"prompts" gorm:"serializer:json"`
	SelectedPersonaID   string                    `json:"selectedPersonaId"`
	UseStructuredOutput bool                      `json:"useStructuredOutput"`
	UseImageResponse    bool                      `json:"useImageResponse"`
	SpeedUp             float64                   `json:"speedUp"`
	Device              string                    `json:"device"`
	JitterSigma         float64                   `json:"jitterSigma"`
	MaxContextTokens    int                       `json:"maxContextTokens"`
	Temperature         float64                   `json:"temperature"`
	TopP                float64                   `json:"topP"`
	TopK                int                       `json:"topK"`
	MaxOutputTokens     int                       `json:"maxOutputTokens"`
	Locale              string                    `json:"locale"`
}

// ActiveAPIConfig returns the configuration of the selected provider
func (s *Settings) ActiveAPIConfig() (APIConfig, bool) {
	if s.APIProvider == "" || s.APIConfigs == nil {
		return APIConfig{}, false
	}
	cfg, ok := s.APIConfigs[s.APIProvider]
	return cfg, ok
}
