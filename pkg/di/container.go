package di

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/YEJIN-DEV/yejingram-sub001/ai"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/ws"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/config"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/health"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/i18n"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/resilience"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/secrets"
	"github.com/YEJIN-DEV/yejingram-sub001/shared/redis"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"

	imageAPIKeySecret = "image_api_key"
)

// Container holds all the dependencies for the application
type Container struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *gorm.DB
	Repository service.Repository
	Redis      *redis.RedisClient
	Secrets    secrets.Manager
	Breakers   *resilience.Registry
	Tokens     *ai.TokenService
	AI         *ai.Client
	Translator *i18n.Translator
	Hub        *ws.Hub
	Chat       *service.ChatService
	Health     *health.Checker
}

// New creates a new dependency injection container. db may be nil, in which
// case it is opened from cfg unless DB_DRIVER selects the in-memory store.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.New(logger.ConfigFromEnv(cfg.Logging.Level, cfg.Logging.Format))
	}
	c := &Container{
		Config: cfg,
		Logger: log,
		Health: health.NewChecker(log, 30*time.Second),
	}

	if err := c.initRepository(db); err != nil {
		return nil, err
	}
	if err := c.initSecrets(); err != nil {
		return nil, err
	}

	if cfg.Chat.ImageServiceURL == "" && cfg.LLM.UseImageResponse {
		log.Warn("LLM_IMAGE_RESPONSE ignored, no image service configured")
		cfg.LLM.UseImageResponse = false
	}
	settings, err := service.SeedSettings(ctx, c.Repository, cfg, c.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	locale := cfg.Chat.Locale
	if settings.Locale != "" {
		locale = settings.Locale
	}
	c.Translator = i18n.New(locale)

	hc := &http.Client{Timeout: cfg.LLM.RequestTimeout}
	c.Breakers = resilience.NewRegistry(log, nil)
	c.Tokens = ai.NewTokenService(hc, cfg.Cache.TTL, cfg.Cache.MaxSize, log)
	c.AI = ai.NewClient(hc, c.Breakers, c.Tokens, log)
	c.Health.RegisterCheck("providers", false, func(context.Context) (health.Status, string, error) {
		if open := c.Breakers.Open(); len(open) > 0 {
			return health.StatusDegraded, "circuit open: " + strings.Join(open, ", "), nil
		}
		return health.StatusUp, "all provider circuits closed", nil
	})

	c.Hub = ws.NewHub(c.Repository.ResetUnread, log)

	opts := []service.Option{
		service.WithEchoGuard(ai.EchoGuard{
			Threshold:   cfg.Chat.EchoThreshold,
			Window:      cfg.Chat.EchoWindow,
			MaxAttempts: cfg.Chat.EchoMaxAttempts,
		}),
		service.WithImageTimeout(cfg.Chat.ImageTaskTimeout),
	}
	if cfg.Chat.ImageServiceURL != "" {
		key := c.Secrets.GetSecretWithDefault(ctx, imageAPIKeySecret, "")
		opts = append(opts, service.WithImageGenerator(service.NewHTTPImageGenerator(cfg.Chat.ImageServiceURL, key, log)))
	}

	c.Chat = service.NewChatService(c.Repository, c.AI, c.Hub, c.initLocker(), c.Translator, log, opts...)
	return c, nil
}

func (c *Container) initRepository(db *gorm.DB) error {
	cfg := c.Config
	switch cfg.Database.Driver {
	case driverMemory:
		c.Logger.Warn("Using in-memory store, data is lost on restart")
		c.Repository = service.NewMemoryStore()
		return nil
	case driverPostgres, "":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	if db == nil {
		var err error
		if db, err = config.NewDB(cfg, c.Logger); err != nil {
			return err
		}
	}
	store := service.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	c.DB = db
	c.Repository = store

	c.Health.RegisterPingCheck("database", true, health.PingFunc(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}))
	return nil
}

func (c *Container) initSecrets() error {
	cfg := c.Config
	if !cfg.Vault.Enabled {
		c.Secrets = secrets.EnvManager{}
		return nil
	}
	vm, err := secrets.NewVaultManager(secrets.VaultConfig{
		Address:     cfg.Vault.Address,
		Token:       cfg.Vault.Token,
		Namespace:   cfg.Vault.Namespace,
		Mount:       cfg.Vault.Mount,
		SecretsPath: cfg.Vault.SecretsPath,
		Timeout:     10 * time.Second,
		MaxRetries:  3,
		CacheTTL:    cfg.Cache.TTL,
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create vault manager: %w", err)
	}
	c.Secrets = vm
	return nil
}

// initLocker picks the Redis lock when several instances may share rooms
func (c *Container) initLocker() service.RoomLocker {
	cfg := c.Config
	if !cfg.Redis.Enabled {
		return service.NewMemoryRoomLocker()
	}
	c.Redis = redis.NewRedisClient(redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.Health.RegisterPingCheck("redis", true, c.Redis)
	return redis.NewRoomLock(c.Redis, cfg.Redis.LockTTL, c.Logger)
}

// Close stops background work and releases connections
func (c *Container) Close() {
	if c.Chat != nil {
		c.Chat.Close()
	}
	if c.Tokens != nil {
		c.Tokens.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.LogError(err, "failed to close redis")
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
