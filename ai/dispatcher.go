package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/resilience"
)

const maxResponseBytes = 8 << 20

// CallRequest is one generation for one responder
type CallRequest struct {
	Settings  *models.Settings
	Room      *models.Room
	Persona   *models.Persona
	Character *models.Character
	// Members are every character of the room, the responder included
	Members                []*models.Character
	Messages               []models.Message
	IsProactive            bool
	ExtraSystemInstruction string
}

// Client dispatches chat generations to the configured provider
type Client struct {
	hc       *http.Client
	adapters map[models.APIProvider]ProviderAdapter
	breakers *resilience.Registry
	tokens   *TokenService
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithClock overrides the wall clock used for {timeContext}
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates a dispatcher
func NewClient(hc *http.Client, breakers *resilience.Registry, tokens *TokenService, log *logger.Logger, opts ...ClientOption) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 120 * time.Second}
	}
	if log == nil {
		log = logger.Discard()
	}
	if breakers == nil {
		breakers = resilience.NewRegistry(log, nil)
	}
	if tokens == nil {
		tokens = NewTokenService(hc, defaultTokenCacheTTL, defaultTokenCacheSize, log)
	}
	c := &Client{
		hc:       hc,
		adapters: NewAdapters(),
		breakers: breakers,
		tokens:   tokens,
		log:      log,
		tracer:   otel.Tracer("github.com/YEJIN-DEV/yejingram-sub001/ai"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Adapter returns the adapter for provider or a ConfigurationError
func (c *Client) Adapter(provider models.APIProvider) (ProviderAdapter, error) {
	a, ok := c.adapters[provider]
	if !ok {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unsupported provider %q", provider))
	}
	return a, nil
}

// CallAPI assembles, trims, sends and parses one generation
func (c *Client) CallAPI(ctx context.Context, req CallRequest) (*ChatResponse, error) {
	if req.Settings == nil {
		return nil, apperrors.NewConfigurationError("settings are not loaded")
	}
	if req.Character == nil {
		return nil, apperrors.NewConfigurationError("no responding character")
	}
	provider := req.Settings.APIProvider
	adapter, err := c.Adapter(provider)
	if err != nil {
		return nil, err
	}
	cfg, _ := req.Settings.ActiveAPIConfig()
	ep, err := adapter.Endpoint(cfg)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "ai.CallAPI", trace.WithAttributes(
		attribute.String("ai.provider", string(provider)),
		attribute.String("ai.model", cfg.Model),
		attribute.Int("ai.history", len(req.Messages)),
	))
	defer span.End()

	opts := RequestOptions{
		Model:             cfg.Model,
		Temperature:       req.Settings.Temperature,
		TopP:              req.Settings.TopP,
		TopK:              req.Settings.TopK,
		MaxOutputTokens:   req.Settings.MaxOutputTokens,
		Structured:        req.Settings.UseStructuredOutput,
		IncludeImageField: req.Settings.UseImageResponse,
	}
	now := c.now()

	build := func(window []models.Message) (any, error) {
		prompt := AssemblePrompt(PromptInput{
			Room:                   req.Room,
			Persona:                req.Persona,
			Character:              req.Character,
			Members:                req.Members,
			Messages:               window,
			Items:                  req.Settings.Prompts,
			IsProactive:            req.IsProactive,
			ExtraSystemInstruction: req.ExtraSystemInstruction,
			UseStructuredOutput:    opts.Structured,
			UseImageResponse:       opts.IncludeImageField,
			Now:                    now,
		})
		return adapter.BuildPayload(prompt, opts)
	}
	count := func(ctx context.Context, payload any) int {
		return c.tokens.Count(ctx, adapter, cfg, payload)
	}

	trimmed, err := TrimToBudget(ctx, req.Messages, req.Settings.MaxContextTokens, build, count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "trim failed")
		return nil, err
	}
	if trimmed.Evicted > 0 {
		trimEvictions.Add(float64(trimmed.Evicted))
		c.log.Debug("trimmed history to fit context",
			"provider", string(provider),
			"evicted", trimmed.Evicted,
			"tokens", trimmed.Tokens,
		)
	}
	if trimmed.Tokens > 0 {
		promptTokens.WithLabelValues(string(provider)).Observe(float64(trimmed.Tokens))
	}

	text, err := c.send(ctx, adapter, ep, trimmed.Payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res, err := ParseChatResponse(text, ParseOptions{
		Structured: opts.Structured,
		InChars:    InChars(req.Messages, req.Character.ID),
		Delay:      NewDelayModel(req.Settings.Device, req.Settings.SpeedUp, req.Settings.JitterSigma),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("ai.parts", len(res.Messages)))
	return res, nil
}

// send POSTs the payload through the provider's circuit breaker and returns the reply text
func (c *Client) send(ctx context.Context, adapter ProviderAdapter, ep Endpoint, payload any) (string, error) {
	provider := string(adapter.Provider())
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", provider, err)
	}

	var (
		raw    []byte
		status int
		start  = time.Now()
	)
	// Only transport errors and 5xx count against the breaker.
	var callErr error
	err = c.breakers.Get(provider).Execute(func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
		if err != nil {
			callErr = err
			return nil
		}
		httpReq.Header = ep.Header.Clone()

		resp, err := c.hc.Do(httpReq)
		if err != nil {
			callErr = err
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		raw, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			callErr = err
			return err
		}
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("%s returned %d", provider, status)
		}
		return nil
	})
	requestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		requestsTotal.WithLabelValues(provider, "circuit_open").Inc()
		return "", apperrors.NewProviderHTTPError(http.StatusServiceUnavailable, "circuit open")
	case callErr != nil:
		requestsTotal.WithLabelValues(provider, "transport_error").Inc()
		return "", fmt.Errorf("%s request: %w", provider, callErr)
	}

	if status < 200 || status >= 300 {
		requestsTotal.WithLabelValues(provider, strconv.Itoa(status)).Inc()
		msg := adapter.ErrorMessage(raw)
		c.log.Warn("provider returned error",
			"provider", provider,
			"status", status,
			"message", msg,
		)
		return "", apperrors.NewProviderHTTPError(status, msg)
	}

	text, err := adapter.ParseResponse(raw)
	if err != nil {
		requestsTotal.WithLabelValues(provider, "parse_error").Inc()
		return "", err
	}
	requestsTotal.WithLabelValues(provider, "ok").Inc()
	return text, nil
}

// InChars is the length of the message a responder is answering: the latest
// non-SYSTEM message it did not write itself
func InChars(messages []models.Message, responderID uint) int {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Type == models.MessageTypeSystem {
			continue
		}
		if !m.IsFromPersona() && m.AuthorID == responderID {
			continue
		}
		return utf8.RuneCountInString(m.Content)
	}
	return 0
}
