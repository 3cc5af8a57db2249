package router

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/api"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/ws"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/config"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/di"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/middleware"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config

	limiter *middleware.RateLimiter
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))
	engine.Use(bodyLimit(cfg.Security.MaxBodySize))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
		limiter: middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
			Limit:          rate.Limit(cfg.Security.RateLimit),
			Burst:          cfg.Security.RateLimitBurst,
			ExpiryDuration: time.Hour,
		}),
	}
}

// Start runs the background loops the routes depend on
func (r *Router) Start(ctx context.Context) {
	go r.Container.Hub.Run(ctx)
	go r.limiter.Cleanup(ctx)
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container

	healthHandler := api.NewHealthHandler(c.Health)
	chatHandler := api.NewChatHandler(c.Chat, c.Repository)
	resourceHandler := api.NewResourceHandler(c.Repository, c.Translator)

	healthHandler.RegisterHealthRoutes(r.Engine)

	v1 := r.Engine.Group("/api/v1")
	healthHandler.RegisterHealthRoutes(v1)
	chatHandler.RegisterRoutes(v1, r.limiter.Middleware())
	resourceHandler.RegisterRoutes(v1)

	r.Engine.GET("/ws", func(ctx *gin.Context) {
		ws.ServeWs(c.Hub, ctx)
	})
}

// corsMiddleware allows the configured origins, including the websocket upgrade headers
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0 || slices.Contains(allowed, "*")
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin != "" && (allowAll || slices.Contains(allowed, origin)):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Origin, Upgrade, Connection, Cache-Control, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection, X-Request-ID, Retry-After")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// bodyLimit caps request bodies; attachments travel inline as data URLs
func bodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
