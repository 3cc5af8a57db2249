package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/cache"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
)

// TokenService counts payload tokens through the provider adapters and
// remembers recent answers, since the trimmer recounts near-identical payloads
type TokenService struct {
	hc    *http.Client
	cache *cache.Cache[int]
	log   *logger.Logger
}

// Cache bounds used when the caller passes none
const (
	defaultTokenCacheTTL  = 10 * time.Minute
	defaultTokenCacheSize = 1000
)

// NewTokenService creates a token service with a bounded result cache.
// Non-positive ttl or maxItems fall back to the defaults above.
func NewTokenService(hc *http.Client, ttl time.Duration, maxItems int, log *logger.Logger) *TokenService {
	if hc == nil {
		hc = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = defaultTokenCacheTTL
	}
	if maxItems <= 0 {
		maxItems = defaultTokenCacheSize
	}
	if log == nil {
		log = logger.Discard()
	}
	return &TokenService{
		hc:    hc,
		cache: cache.New[int](cache.Options{TTL: ttl, MaxItems: maxItems, CleanupInterval: ttl}),
		log:   log,
	}
}

// Count returns the token count of payload, or 0 when counting fails
func (s *TokenService) Count(ctx context.Context, adapter ProviderAdapter, cfg models.APIConfig, payload any) int {
	key, err := tokenCacheKey(adapter.Provider(), cfg.Model, payload)
	if err == nil {
		if n, ok := s.cache.Get(key); ok {
			return n
		}
	}

	n, cerr := adapter.CountTokens(ctx, s.hc, cfg, payload)
	if cerr != nil {
		s.log.Warn("token count failed",
			"provider", string(adapter.Provider()),
			"model", cfg.Model,
			"error", cerr.Error(),
		)
		return 0
	}
	if err == nil {
		s.cache.Set(key, n)
	}
	return n
}

// Close stops the cache janitor
func (s *TokenService) Close() {
	s.cache.Stop()
}

func tokenCacheKey(provider models.APIProvider, model string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}
