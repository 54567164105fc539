// Package telemetry wraps the OpenTelemetry SDK: a tracer provider, a
// Prometheus exporter, and counters for bridge commands and flow-run
// starts and failures. No bridge command opens a span, and MetricsHandler
// is not mounted on any daemon listener (spec §1 ambient
// stack: "logging, error handling, configuration... are carried even
// when the spec's Non-goals exclude observability layers").
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider wraps the OpenTelemetry SDK providers the daemon needs.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	commandCounter  metric.Int64Counter
	runStartCounter metric.Int64Counter
	runFailCounter  metric.Int64Counter
}

// New builds a Provider with a Prometheus metrics exporter and a tracer
// provider that exports to stdout when BIOVAULT_TRACE_STDOUT is set
// (local debugging only; no remote collector is configured, matching
// SPEC_FULL.md's local-only telemetry surface).
func New(serviceName, version string) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("",
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if os.Getenv("BIOVAULT_TRACE_STDOUT") != "" {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: build stdout trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: build prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("biovault-desktop")
	commandCounter, err := meter.Int64Counter("bridge.commands.total", metric.WithDescription("total bridge commands dispatched"))
	if err != nil {
		return nil, err
	}
	runStartCounter, err := meter.Int64Counter("flowrun.starts.total", metric.WithDescription("total flow runs started"))
	if err != nil {
		return nil, err
	}
	runFailCounter, err := meter.Int64Counter("flowrun.failures.total", metric.WithDescription("total flow runs that ended failed"))
	if err != nil {
		return nil, err
	}

	return &Provider{
		tp:              tp,
		mp:              mp,
		commandCounter:  commandCounter,
		runStartCounter: runStartCounter,
		runFailCounter:  runFailCounter,
	}, nil
}

// Tracer returns a tracer scoped to name.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// RecordCommand increments the bridge command counter.
func (p *Provider) RecordCommand(ctx context.Context, method string, success bool) {
	p.commandCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("success", success),
	))
}

// RecordRunStart increments the flow-run start counter.
func (p *Provider) RecordRunStart(ctx context.Context) {
	p.runStartCounter.Add(ctx, 1)
}

// RecordRunFailure increments the flow-run failure counter.
func (p *Provider) RecordRunFailure(ctx context.Context) {
	p.runFailCounter.Add(ctx, 1)
}

// MetricsHandler returns the HTTP handler for the Prometheus-format
// /metrics endpoint.
func (p *Provider) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes and releases both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return err
	}
	return p.mp.Shutdown(ctx)
}
