package validator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

const schemaPath = "../../docs/openapi.yaml"

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := NewOpenAPIValidator(schemaPath)
	require.NoError(t, err)

	r := gin.New()
	r.Use(errors.ErrorHandler(), v.Middleware())
	ok := func(c *gin.Context) { c.Status(http.StatusAccepted) }
	r.POST("/api/v1/rooms/:roomId/messages", ok)
	r.PUT("/api/v1/rooms/:roomId", ok)
	r.GET("/internal/debug", ok)
	return r
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"valid message", http.MethodPost, "/api/v1/rooms/r1/messages", `{"content":"hi"}`, http.StatusAccepted},
		{"wrong content type", http.MethodPost, "/api/v1/rooms/r1/messages", `{"content":5}`, http.StatusBadRequest},
		{"room without type", http.MethodPut, "/api/v1/rooms/r1", `{"name":"x"}`, http.StatusBadRequest},
		{"unknown room type", http.MethodPut, "/api/v1/rooms/r1", `{"type":"Party"}`, http.StatusBadRequest},
		{"undocumented route passes", http.MethodGet, "/internal/debug", "", http.StatusAccepted},
	}

	r := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusBadRequest {
				var body struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "SCHEMA_VALIDATION", body.Error.Code)
			}
		})
	}
}

func TestReloadSchema(t *testing.T) {
	v, err := NewOpenAPIValidator(schemaPath)
	require.NoError(t, err)
	assert.NoError(t, v.ReloadSchema())

	_, err = NewOpenAPIValidator("missing.yaml")
	assert.Error(t, err)
}
