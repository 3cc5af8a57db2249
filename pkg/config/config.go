package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ProviderConfig holds the environment defaults for one LLM provider
type ProviderConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	ProjectID   string
	Location    string
	AccessToken string
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port     string
		GRPCPort string
		Env      string
		Timeout  time.Duration
	}

	// Database configuration
	Database struct {
		Driver   string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Redis backs the distributed room lock
	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
		LockTTL  time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// LLM holds provider defaults used to seed the settings row
	LLM struct {
		Provider            string
		Providers           map[string]ProviderConfig
		Temperature         float64
		TopP                float64
		TopK                int
		MaxOutputTokens     int
		MaxContextTokens    int
		UseStructuredOutput bool
		UseImageResponse    bool
		RequestTimeout      time.Duration
	}

	// Chat tunes pacing and the group behaviour
	Chat struct {
		SpeedUp          float64
		Device           string
		JitterSigma      float64
		EchoThreshold    float64
		EchoWindow       int
		EchoMaxAttempts  int
		ImageTaskTimeout time.Duration
		Locale           string
		ImageServiceURL  string
	}

	// Observability configuration
	Observability struct {
		MetricsAddr    string
		TracingEnabled bool
		ServiceName    string
	}

	// Vault configuration
	Vault struct {
		Enabled     bool
		Address     string
		Token       string
		Namespace   string
		Mount       string
		SecretsPath string
	}

	// Cache settings
	Cache struct {
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}

	// OpenAPI schema used for request validation
	OpenAPISchemaPath string
}

var (
	instance *Config
	once     sync.Once
)

// providerNames lists the providers configurable from the environment
var providerNames = []string{"gemini", "vertexai", "claude", "openai", "grok", "openrouter", "customOpenAI"}

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		_ = godotenv.Load()
		instance = Load()
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load reads a fresh configuration from the environment without touching the singleton
func Load() *Config {
	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "9091")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

	// Database config
	cfg.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "yejingram")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

	// Redis config
	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.LockTTL = getEnvDuration("ROOM_LOCK_TTL", 10*time.Minute)

	// Security config
	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 20<<20) // 20MB, images are inline

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	// LLM config
	cfg.LLM.Provider = getEnvString("LLM_PROVIDER", "gemini")
	cfg.LLM.Providers = make(map[string]ProviderConfig, len(providerNames))
	for _, name := range providerNames {
		prefix := envPrefix(name)
		cfg.LLM.Providers[name] = ProviderConfig{
			APIKey:      getEnvString(prefix+"_API_KEY", ""),
			Model:       getEnvString(prefix+"_MODEL", defaultModels[name]),
			BaseURL:     getEnvString(prefix+"_BASE_URL", ""),
			ProjectID:   getEnvString(prefix+"_PROJECT_ID", ""),
			Location:    getEnvString(prefix+"_LOCATION", ""),
			AccessToken: getEnvString(prefix+"_ACCESS_TOKEN", ""),
		}
	}
	cfg.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", 1.0)
	cfg.LLM.TopP = getEnvFloat("LLM_TOP_P", 0.95)
	cfg.LLM.TopK = getEnvInt("LLM_TOP_K", 40)
	cfg.LLM.MaxOutputTokens = getEnvInt("LLM_MAX_OUTPUT_TOKENS", 4096)
	cfg.LLM.MaxContextTokens = getEnvInt("LLM_MAX_CONTEXT_TOKENS", 128000)
	cfg.LLM.UseStructuredOutput = getEnvBool("LLM_STRUCTURED_OUTPUT", true)
	cfg.LLM.UseImageResponse = getEnvBool("LLM_IMAGE_RESPONSE", false)
	cfg.LLM.RequestTimeout = getEnvDuration("LLM_REQUEST_TIMEOUT", 120*time.Second)

	// Chat config
	cfg.Chat.SpeedUp = getEnvFloat("CHAT_SPEED_UP", 1)
	cfg.Chat.Device = getEnvString("CHAT_DEVICE", "mobile")
	cfg.Chat.JitterSigma = getEnvFloat("CHAT_JITTER_SIGMA", 0.25)
	cfg.Chat.EchoThreshold = getEnvFloat("CHAT_ECHO_THRESHOLD", 0.8)
	cfg.Chat.EchoWindow = getEnvInt("CHAT_ECHO_WINDOW", 3)
	cfg.Chat.EchoMaxAttempts = getEnvInt("CHAT_ECHO_MAX_ATTEMPTS", 3)
	cfg.Chat.ImageTaskTimeout = getEnvDuration("IMAGE_TASK_TIMEOUT", 5*time.Minute)
	cfg.Chat.Locale = getEnvString("CHAT_LOCALE", "ko")
	cfg.Chat.ImageServiceURL = getEnvString("IMAGE_SERVICE_URL", "")

	// Observability config
	cfg.Observability.MetricsAddr = getEnvString("METRICS_ADDR", ":2112")
	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.Observability.ServiceName = getEnvString("SERVICE_NAME", "yejingram")

	// Vault config
	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.Mount = getEnvString("VAULT_MOUNT", "secret")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "yejingram")

	// Cache settings
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 10*time.Minute)
	cfg.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
	cfg.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)

	cfg.OpenAPISchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "docs/openapi.yaml")

	return cfg
}

var defaultModels = map[string]string{
	"gemini":     "gemini-2.5-pro",
	"vertexai":   "gemini-2.5-pro",
	"claude":     "claude-sonnet-4-20250514",
	"openai":     "gpt-4.1",
	"grok":       "grok-4",
	"openrouter": "google/gemini-2.5-pro",
}

// envPrefix turns a provider name into its variable prefix
func envPrefix(provider string) string {
	if provider == "customOpenAI" {
		return "CUSTOM_OPENAI"
	}
	return strings.ToUpper(provider)
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
