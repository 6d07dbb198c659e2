package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/railzwaylabs/ratebook/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const metricExportInterval = 30 * time.Second

func newResource(cfg config.Config) *resource.Resource {
	return resource.NewSchemaless(
		attribute.String("service.name", cfg.AppName),
		attribute.String("service.version", cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	)
}

// NewTracerProvider installs the global tracer provider. Spans are exported
// over OTLP only when OTEL_EXPORTER_OTLP_ENDPOINT is configured.
func NewTracerProvider(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(newResource(cfg))}

	endpoint := strings.TrimSpace(cfg.Observability.OTLPEndpoint)
	if endpoint != "" {
		exporter, err := newTraceExporter(context.Background(), cfg.Observability, endpoint)
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		log.Info("otlp trace export enabled",
			zap.String("endpoint", endpoint),
			zap.String("protocol", cfg.Observability.OTLPProtocol),
		)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

// NewMeterProvider installs the global meter provider.
func NewMeterProvider(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(newResource(cfg))}

	endpoint := strings.TrimSpace(cfg.Observability.OTLPEndpoint)
	if endpoint != "" {
		exporter, err := newMetricExporter(context.Background(), cfg.Observability, endpoint)
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval)),
		))
		log.Info("otlp metric export enabled", zap.String("endpoint", endpoint))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mp.Shutdown(ctx)
		},
	})
	return mp, nil
}

func newTraceExporter(ctx context.Context, cfg config.ObservabilityConfig, endpoint string) (sdktrace.SpanExporter, error) {
	if cfg.OTLPProtocol == "http" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func newMetricExporter(ctx context.Context, cfg config.ObservabilityConfig, endpoint string) (sdkmetric.Exporter, error) {
	if cfg.OTLPProtocol == "http" {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}
