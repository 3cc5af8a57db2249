package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/resilience"
)

func testClient(t *testing.T, failureThreshold uint) *Client {
	t.Helper()
	log := logger.Discard()
	breakers := resilience.NewRegistry(log, func(name string) resilience.CircuitBreakerConfig {
		cfg := resilience.DefaultCircuitBreakerConfig(name)
		cfg.FailureThreshold = failureThreshold
		cfg.RetryTimeout = time.Hour
		return cfg
	})
	tokens := NewTokenService(nil, time.Minute, 100, log)
	t.Cleanup(tokens.Close)
	return NewClient(nil, breakers, tokens, log, WithClock(func() time.Time { return testNow }))
}

func claudeSettings(baseURL string) *models.Settings {
	return &models.Settings{
		APIProvider: models.ProviderClaude,
		APIConfigs: map[models.APIProvider]models.APIConfig{
			models.ProviderClaude: {APIKey: "sk-ant", Model: "claude-sonnet-4", BaseURL: baseURL},
		},
		Prompts: []models.PromptItem{
			{Type: models.PromptTypePlain, Role: models.PromptRoleSystem, Content: "You are {{char}}."},
			{Type: models.PromptTypeChat},
		},
		Device: "mobile",
	}
}

func directRequest(settings *models.Settings, messages ...models.Message) CallRequest {
	return CallRequest{
		Settings:  settings,
		Room:      &models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}},
		Persona:   mina,
		Character: haru,
		Members:   []*models.Character{haru},
		Messages:  messages,
	}
}

func TestCallAPIUnstructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		var req ClaudeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "You are Haru.", req.System[0].Text)
		w.Write([]byte(`{"content":[{"type":"text","text":"[From: Haru] hi\n\nhow are you"}]}`))
	}))
	defer srv.Close()

	res, err := testClient(t, 5).CallAPI(context.Background(), directRequest(claudeSettings(srv.URL), models.Message{Content: "hello there"}))

	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "hi", res.Messages[0].Content)
	assert.Equal(t, "how are you", res.Messages[1].Content)
	assert.Greater(t, res.Messages[0].Delay, 0.0)
}

func TestCallAPIStructuredOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"reactionDelay\":1500,\"messages\":[{\"delay\":800,\"content\":\"hi\"}],\"newMemory\":\"likes tea\"}"}}]}`))
	}))
	defer srv.Close()

	settings := &models.Settings{
		APIProvider:         models.ProviderCustomOpenAI,
		APIConfigs:          map[models.APIProvider]models.APIConfig{models.ProviderCustomOpenAI: {APIKey: "k", Model: "local", BaseURL: srv.URL}},
		Prompts:             DefaultPrompts(),
		UseStructuredOutput: true,
	}

	res, err := testClient(t, 5).CallAPI(context.Background(), directRequest(settings, models.Message{Content: "hi"}))

	require.NoError(t, err)
	assert.Equal(t, 1500.0, res.ReactionDelay)
	assert.Equal(t, "likes tea", res.NewMemory)
	assert.Equal(t, []MessagePart{{Delay: 800, Content: "hi"}}, res.Messages)
}

func TestCallAPIProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := testClient(t, 5).CallAPI(context.Background(), directRequest(claudeSettings(srv.URL)))

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrProviderHTTP))
	assert.Contains(t, err.Error(), "invalid x-api-key")
	status, ok := apperrors.ProviderStatus(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCallAPIStatusTextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(t, 5).CallAPI(context.Background(), directRequest(claudeSettings(srv.URL)))

	assert.Contains(t, err.Error(), "Too Many Requests")
}

func TestCallAPICircuitOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := testClient(t, 1)
	_, err := client.CallAPI(context.Background(), directRequest(claudeSettings(srv.URL)))
	status, _ := apperrors.ProviderStatus(err)
	assert.Equal(t, http.StatusBadGateway, status)

	_, err = client.CallAPI(context.Background(), directRequest(claudeSettings(srv.URL)))
	status, _ = apperrors.ProviderStatus(err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCallAPIMissingConfiguration(t *testing.T) {
	settings := claudeSettings("")
	settings.APIConfigs = nil

	_, err := testClient(t, 5).CallAPI(context.Background(), directRequest(settings))
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))

	settings.APIProvider = "nope"
	_, err = testClient(t, 5).CallAPI(context.Background(), directRequest(settings))
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
}

func TestCallAPITrimsToBudget(t *testing.T) {
	var sent ClaudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ClaudeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if r.URL.Path == "/messages/count_tokens" {
			n := 0
			for _, m := range req.Messages {
				for _, b := range m.Content {
					if strings.HasPrefix(b.Text, "msg-") {
						n++
					}
				}
			}
			json.NewEncoder(w).Encode(map[string]int{"input_tokens": n * 100})
			return
		}
		sent = req
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	settings := claudeSettings(srv.URL)
	settings.MaxContextTokens = 250
	var messages []models.Message
	for _, id := range []string{"msg-0", "msg-1", "msg-2", "msg-3", "msg-4"} {
		messages = append(messages, models.Message{ID: id, Content: id})
	}

	_, err := testClient(t, 5).CallAPI(context.Background(), directRequest(settings, messages...))

	require.NoError(t, err)
	require.Len(t, sent.Messages, 1)
	var texts []string
	for _, b := range sent.Messages[0].Content {
		texts = append(texts, b.Text)
	}
	assert.Equal(t, []string{"msg-3", "msg-4"}, texts)
}

func TestCallAPITokenLimitExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"input_tokens": 999}`))
	}))
	defer srv.Close()

	settings := claudeSettings(srv.URL)
	settings.MaxContextTokens = 100

	_, err := testClient(t, 5).CallAPI(context.Background(), directRequest(settings, models.Message{Content: "a"}, models.Message{Content: "b"}))

	assert.True(t, apperrors.Is(err, apperrors.ErrTokenLimitExceeded))
}

func TestInChars(t *testing.T) {
	messages := []models.Message{
		{AuthorID: 0, Content: "héllo"},
		{AuthorID: 1, Content: "my own reply"},
		{AuthorID: 0, Type: models.MessageTypeSystem, Content: "system"},
	}

	assert.Equal(t, 5, InChars(messages, 1))
	assert.Equal(t, 12, InChars(messages, 2))
	assert.Equal(t, 0, InChars(nil, 1))
}
