package api

import (
	"github.com/gin-gonic/gin"

	"github.com/YEJIN-DEV/yejingram-sub001/pkg/health"
)

// HealthHandler exposes the health checker over HTTP
type HealthHandler struct {
	checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) Health(c *gin.Context) {
	h.checker.HTTPHandler()(c.Writer, c.Request)
}

// RegisterHealthRoutes registers health check related routes
func (h *HealthHandler) RegisterHealthRoutes(router gin.IRoutes) {
	router.GET("/health", h.Health)
}
