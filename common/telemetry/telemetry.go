package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/zpages"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/lyzr/haystack/common/config"
	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/metrics"
)

// Telemetry holds observability components: the pprof server, the
// Prometheus scrape endpoint and the tracer provider.
type Telemetry struct {
	log     *logger.Logger
	service string
	cfg     config.TelemetryConfig

	tp      *sdktrace.TracerProvider
	tracez  http.Handler
	servers []*http.Server
}

// New creates telemetry components
func New(service string, cfg config.TelemetryConfig, log *logger.Logger) *Telemetry {
	return &Telemetry{
		log:     log,
		service: service,
		cfg:     cfg,
	}
}

// Start starts telemetry endpoints
func (t *Telemetry) Start(ctx context.Context) error {
	host := metrics.PublishHostInfo(t.service)
	t.log.Info("host detected",
		"hostname", host.Hostname,
		"os", host.OS,
		"arch", host.Arch,
		"cpus", host.CPULogical,
		"memory_mb", host.TotalMemoryMB,
		"container", host.ContainerRuntime,
	)

	if t.cfg.EnableTracing {
		if err := t.initTracing(ctx); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if t.cfg.EnablePprof {
		// pprof registers on the default mux
		t.serve("pprof", fmt.Sprintf("localhost:%d", t.cfg.PprofPort), http.DefaultServeMux)
	}

	if t.cfg.EnableMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if t.tracez != nil {
			mux.Handle("/tracez", t.tracez)
		}
		t.serve("metrics", fmt.Sprintf(":%d", t.cfg.MetricsPort), mux)
	}

	return nil
}

// TracezHandler returns the zpages span viewer, or nil when tracing is off
func (t *Telemetry) TracezHandler() http.Handler {
	return t.tracez
}

// Shutdown flushes spans and stops the telemetry servers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, srv := range t.servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if t.tp != nil {
		if err := t.tp.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordDuration records operation duration
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	duration := time.Since(start)
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}

func (t *Telemetry) initTracing(ctx context.Context) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(t.service),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	zpagesProcessor := zpages.NewSpanProcessor()

	t.tp = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(zpagesProcessor),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(t.tp)

	t.tracez = zpages.NewTracezHandler(zpagesProcessor)
	t.log.Info("tracing enabled", "service", t.service)
	return nil
}

func (t *Telemetry) serve(name, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	t.servers = append(t.servers, srv)

	go func() {
		t.log.Info(name+" server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error(name+" server error", "error", err)
		}
	}()
}
