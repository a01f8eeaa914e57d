package telemetry

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and closes the providers installed by InitWithConfig.
type ShutdownFunc func(context.Context) error

// Config selects where spans and metrics go. Exporter is one of none, stdout
// or otlp. Output receives stdout exports and defaults to os.Stderr so that
// exported spans never interleave with command output.
type Config struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	Output       io.Writer
	// MetricInterval is the export period of the metric reader. Zero means one minute.
	MetricInterval time.Duration
}

// Init installs stdout exporters writing to stderr.
func Init(serviceName, version string) (ShutdownFunc, error) {
	return InitWithConfig(serviceName, version, Config{Exporter: "stdout"})
}

// InitWithConfig installs the global tracer and meter providers.
func InitWithConfig(serviceName, version string, cfg Config) (ShutdownFunc, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exp, err := newExporters(cfg)
	if err != nil {
		return nil, err
	}

	var tpOpts []trace.TracerProviderOption
	var mpOpts []metric.Option
	tpOpts = append(tpOpts, trace.WithResource(res))
	mpOpts = append(mpOpts, metric.WithResource(res))
	if exp.spans != nil {
		tpOpts = append(tpOpts, trace.WithBatcher(exp.spans, trace.WithBatchTimeout(time.Second)))
	}
	if exp.metrics != nil {
		interval := cfg.MetricInterval
		if interval <= 0 {
			interval = time.Minute
		}
		mpOpts = append(mpOpts, metric.WithReader(metric.NewPeriodicReader(exp.metrics, metric.WithInterval(interval))))
	}
	tp := trace.NewTracerProvider(tpOpts...)
	mp := metric.NewMeterProvider(mpOpts...)

	// With exporter "none" the global no-op providers stay in place.
	if exp.spans != nil {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		if err := stderrors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx)); err != nil {
			return fmt.Errorf("telemetry shutdown: %w", err)
		}
		return nil
	}, nil
}

type exporters struct {
	spans   trace.SpanExporter
	metrics metric.Exporter
}

func newExporters(cfg Config) (exporters, error) {
	switch cfg.Exporter {
	case "none", "off":
		return exporters{}, nil
	case "", "stdout":
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		spans, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return exporters{}, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		metrics, err := stdoutmetric.New(stdoutmetric.WithWriter(out))
		if err != nil {
			return exporters{}, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		return exporters{spans: spans, metrics: metrics}, nil
	case "otlp":
		if cfg.OTLPEndpoint == "" {
			return exporters{}, fmt.Errorf("otlp endpoint is required")
		}
		return newOTLPExporters(cfg)
	default:
		return exporters{}, fmt.Errorf("unknown telemetry exporter: %s", cfg.Exporter)
	}
}

func newOTLPExporters(cfg Config) (exporters, error) {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	spans, err := otlptracegrpc.New(context.Background(), traceOpts...)
	if err != nil {
		return exporters{}, fmt.Errorf("failed to create otlp trace exporter: %w", err)
	}
	metrics, err := otlpmetricgrpc.New(context.Background(), metricOpts...)
	if err != nil {
		_ = spans.Shutdown(context.Background())
		return exporters{}, fmt.Errorf("failed to create otlp metric exporter: %w", err)
	}
	return exporters{spans: spans, metrics: metrics}, nil
}
