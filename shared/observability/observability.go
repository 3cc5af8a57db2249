package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
)

// ShutdownFunc flushes and stops a provider
type ShutdownFunc func(ctx context.Context) error

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

// SetupTracing installs a global tracer provider exporting spans to stdout.
// Provider calls are traced through it.
func SetupTracing(serviceName string) (ShutdownFunc, error) {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stdouttrace exporter: %w", err)
	}
	res, err := newResource(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// MetricsServer exposes the Prometheus registry on its own listener
type MetricsServer struct {
	provider *metric.MeterProvider
	srv      *http.Server
	log      *logger.Logger
}

// SetupPrometheusMetrics registers the OpenTelemetry Prometheus exporter as the
// global meter provider and prepares the /metrics listener on addr
func SetupPrometheusMetrics(serviceName, addr string, log *logger.Logger) (*MetricsServer, error) {
	exp, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}
	res, err := newResource(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(exp), metric.WithResource(res))
	otel.SetMeterProvider(mp)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &MetricsServer{
		provider: mp,
		srv:      &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log:      log,
	}, nil
}

// Start serves /metrics in the background
func (m *MetricsServer) Start() {
	go func() {
		m.log.Info("Metrics server listening", "addr", m.srv.Addr)
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.LogError(err, "metrics server stopped")
		}
	}()
}

// Shutdown stops the listener and the meter provider
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return errors.Join(m.srv.Shutdown(ctx), m.provider.Shutdown(ctx))
}
