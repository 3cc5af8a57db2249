package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
)

const defaultPollInterval = 2 * time.Second

// HTTPImageGenerator talks to an external image backend.
// POST {base}/generate answers either {"image": dataURL} or {"taskId": id};
// GET {base}/tasks/{id} is then polled until the task is done or failed.
type HTTPImageGenerator struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	log          *logger.Logger
}

func NewHTTPImageGenerator(baseURL, apiKey string, log *logger.Logger) *HTTPImageGenerator {
	if log == nil {
		log = logger.Discard()
	}
	return &HTTPImageGenerator{
		client:       &http.Client{Timeout: 60 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		pollInterval: defaultPollInterval,
		log:          log,
	}
}

// WithPollInterval sets how often pending tasks are checked
func (g *HTTPImageGenerator) WithPollInterval(d time.Duration) *HTTPImageGenerator {
	if d > 0 {
		g.pollInterval = d
	}
	return g
}

type imageRequest struct {
	Prompt        string `json:"prompt"`
	IsSelfie      bool   `json:"isSelfie"`
	CharacterName string `json:"characterName"`
	Avatar        string `json:"avatar,omitempty"`
}

type imageResponse struct {
	Image  string `json:"image,omitempty"`
	TaskID string `json:"taskId,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (g *HTTPImageGenerator) Generate(ctx context.Context, setting models.ImageGenerationSetting, character *models.Character) (*GeneratedImage, error) {
	if strings.TrimSpace(setting.Prompt) == "" {
		return nil, apperrors.NewImageGenerationError("image prompt is empty")
	}
	body := imageRequest{Prompt: setting.Prompt, IsSelfie: setting.IsSelfie}
	if character != nil {
		body.CharacterName = character.Name
		body.Avatar = character.Avatar
	}

	var res imageResponse
	if err := g.do(ctx, http.MethodPost, "/generate", body, &res); err != nil {
		return nil, err
	}
	switch {
	case res.Error != "":
		return nil, apperrors.NewImageGenerationError(res.Error)
	case res.Image != "":
		return &GeneratedImage{DataURL: res.Image}, nil
	case res.TaskID != "":
		g.log.Debug("image task queued", "task_id", res.TaskID)
		return &GeneratedImage{Task: &imageTask{gen: g, id: res.TaskID}}, nil
	}
	return nil, apperrors.NewImageGenerationError("image backend returned no image data")
}

func (g *HTTPImageGenerator) do(ctx context.Context, method, path string, in, out any) error {
	var reader *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return apperrors.NewImageGenerationError(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return apperrors.NewImageGenerationError(fmt.Sprintf("image backend returned status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewImageGenerationError("invalid image backend response: " + err.Error())
	}
	return nil
}

type imageTask struct {
	gen *HTTPImageGenerator
	id  string
}

func (t *imageTask) Await(ctx context.Context) (string, error) {
	ticker := time.NewTicker(t.gen.pollInterval)
	defer ticker.Stop()
	for {
		var res imageResponse
		if err := t.gen.do(ctx, http.MethodGet, "/tasks/"+t.id, nil, &res); err != nil {
			return "", err
		}
		switch {
		case res.Error != "" || res.Status == "failed":
			return "", apperrors.NewImageGenerationError(fmt.Sprintf("image task %s failed: %s", t.id, res.Error))
		case res.Image != "":
			return res.Image, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
