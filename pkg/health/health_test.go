package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestCriticalComponentDown(t *testing.T) {
	c := NewChecker(nil, time.Minute)
	dbUp := true
	c.RegisterPingCheck("database", true, PingFunc(func(context.Context) error {
		if dbUp {
			return nil
		}
		return errors.New("connection refused")
	}))
	c.RegisterPingCheck("redis", false, PingFunc(func(context.Context) error { return errors.New("down") }))

	c.RunChecks(context.Background())
	assert.True(t, c.IsSystemHealthy())

	dbUp = false
	c.RunChecks(context.Background())
	assert.False(t, c.IsSystemHealthy())
	assert.Equal(t, "connection refused", c.GetStatus()["database"].Error)
}

func TestHTTPHandler(t *testing.T) {
	c := NewChecker(nil, time.Minute)
	c.RegisterCheck("database", true, func(context.Context) (Status, string, error) {
		return StatusDown, "gone", errors.New("gone")
	})
	c.RunChecks(context.Background())

	w := httptest.NewRecorder()
	c.HTTPHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body["status"])
}

func TestMirrorFollowsChecker(t *testing.T) {
	c := NewChecker(nil, time.Minute)
	up := true
	c.RegisterCheck("database", true, func(context.Context) (Status, string, error) {
		if up {
			return StatusUp, "ok", nil
		}
		return StatusDown, "down", errors.New("down")
	})
	hs := grpchealth.NewServer()
	Mirror(c, hs)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		res, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		return res.Status
	}

	// unchecked critical components start down
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())

	c.RunChecks(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())

	up = false
	c.RunChecks(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
}
