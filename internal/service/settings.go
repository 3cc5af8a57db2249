package service

import (
	"context"
	"strings"

	"github.com/YEJIN-DEV/yejingram-sub001/ai"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/config"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/secrets"
)

// SeedSettings fills an unconfigured settings row from the environment.
// Provider API keys come from the secrets manager, with the plain
// environment values as defaults. Rows that already name a provider are left alone.
func SeedSettings(ctx context.Context, repo Repository, cfg *config.Config, sm secrets.Manager) (*models.Settings, error) {
	current, err := repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if current.APIProvider != "" {
		return current, nil
	}

	seeded := &models.Settings{
		APIProvider:         models.APIProvider(cfg.LLM.Provider),
		APIConfigs:          make(map[models.APIProvider]models.APIConfig, len(cfg.LLM.Providers)),
		Prompts:             ai.DefaultPrompts(),
		SelectedPersonaID:   current.SelectedPersonaID,
		UseStructuredOutput: cfg.LLM.UseStructuredOutput,
		UseImageResponse:    cfg.LLM.UseImageResponse,
		SpeedUp:             cfg.Chat.SpeedUp,
		Device:              cfg.Chat.Device,
		JitterSigma:         cfg.Chat.JitterSigma,
		MaxContextTokens:    cfg.LLM.MaxContextTokens,
		Temperature:         cfg.LLM.Temperature,
		TopP:                cfg.LLM.TopP,
		TopK:                cfg.LLM.TopK,
		MaxOutputTokens:     cfg.LLM.MaxOutputTokens,
		Locale:              cfg.Chat.Locale,
	}
	for name, p := range cfg.LLM.Providers {
		apiKey := p.APIKey
		if sm != nil {
			apiKey = sm.GetSecretWithDefault(ctx, secrets.ProviderKey(name), p.APIKey)
		}
		seeded.APIConfigs[models.APIProvider(name)] = models.APIConfig{
			APIKey:      strings.TrimSpace(apiKey),
			Model:       p.Model,
			BaseURL:     p.BaseURL,
			ProjectID:   p.ProjectID,
			Location:    p.Location,
			AccessToken: p.AccessToken,
		}
	}

	if err := repo.SaveSettings(ctx, seeded); err != nil {
		return nil, err
	}
	return seeded, nil
}
