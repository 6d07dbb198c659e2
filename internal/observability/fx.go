package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/railzwaylabs/ratebook/internal/metrics"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.Provide(NewTracerProvider),
	fx.Provide(NewMeterProvider),
	fx.Invoke(func(*sdktrace.TracerProvider, *sdkmetric.MeterProvider) {}),
	fx.Invoke(registerMetrics),
	fx.Invoke(func(lc fx.Lifecycle, log *zap.Logger) {
		lc.Append(fx.StopHook(func() { _ = log.Sync() }))
	}),
)

func registerMetrics() error {
	return metrics.Register(prometheus.DefaultRegisterer)
}
