package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/pkg/config"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/di"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
)

func newRouter(t *testing.T) *Router {
	t.Helper()
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173")
	cfg := config.Load()

	c, err := di.New(context.Background(), cfg, nil, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	r := New(c)
	r.AddOpenAPIValidation("../../docs/openapi.yaml")
	r.SetupRoutes()
	return r
}

func TestRoutes(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		method   string
		path     string
		body     string
		wantCode int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/rooms", "", http.StatusOK},
		{http.MethodGet, "/api/v1/settings", "", http.StatusOK},
		{http.MethodGet, "/api/v1/rooms/missing/messages", "", http.StatusNotFound},
		{http.MethodPut, "/api/v1/rooms/r1", `{"type":"Party"}`, http.StatusBadRequest},
		{http.MethodPut, "/api/v1/rooms/r1", `{"type":"Direct","memberIds":[1]}`, http.StatusOK},
		{http.MethodGet, "/api/docs/openapi.yaml", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.Engine.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestCORS(t *testing.T) {
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/rooms", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
