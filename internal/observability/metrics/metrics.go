package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	calculations metric.Int64Counter
	commits      metric.Int64Counter
	exports      metric.Int64Counter
	feedSubs     metric.Int64UpDownCounter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "paystub"
	}
	meter := provider.Meter(name)

	calculations, err := meter.Int64Counter("paystub_calculations_total",
		metric.WithDescription("Pay period simulations by region and outcome"))
	if err != nil {
		return nil, err
	}
	commits, err := meter.Int64Counter("paystub_commits_total",
		metric.WithDescription("Advance-period commits by outcome"))
	if err != nil {
		return nil, err
	}
	exports, err := meter.Int64Counter("paystub_exports_total",
		metric.WithDescription("PDF exports by outcome"))
	if err != nil {
		return nil, err
	}
	feedSubs, err := meter.Int64UpDownCounter("client_feed_subscribers",
		metric.WithDescription("Open client list subscriptions"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		calculations: calculations,
		commits:      commits,
		exports:      exports,
		feedSubs:     feedSubs,
	}, nil
}

// RecordCalculation counts one calculator run.
func (m *Metrics) RecordCalculation(ctx context.Context, region, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("region", strings.TrimSpace(region)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.calculations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCommit counts one advance-period commit attempt.
func (m *Metrics) RecordCommit(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.commits.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

// RecordExport counts one PDF export attempt.
func (m *Metrics) RecordExport(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.exports.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

// FeedSubscribed tracks the open subscription gauge. delta is +1 or -1.
func (m *Metrics) FeedSubscribed(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.feedSubs.Add(ctx, delta)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"region":      {},
	"outcome":     {},
	"route":       {},
	"method":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
