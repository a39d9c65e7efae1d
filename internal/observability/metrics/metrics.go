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
	refreshes     metric.Int64Counter
	staleDropped  metric.Int64Counter
	tierChanges   metric.Int64Counter
	spendFailures metric.Int64Counter
	sessions      metric.Int64Counter
	spendFetch    metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled || strings.TrimSpace(cfg.ExporterEndpoint) == "" {
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
		name = "estateloyalty"
	}
	meter := provider.Meter(name)

	refreshes, err := meter.Int64Counter("estateloyalty_membership_refresh_total")
	if err != nil {
		return nil, err
	}
	staleDropped, err := meter.Int64Counter("estateloyalty_membership_stale_refresh_dropped_total")
	if err != nil {
		return nil, err
	}
	tierChanges, err := meter.Int64Counter("estateloyalty_membership_tier_changes_total")
	if err != nil {
		return nil, err
	}
	spendFailures, err := meter.Int64Counter("estateloyalty_spend_fetch_failures_total")
	if err != nil {
		return nil, err
	}
	sessions, err := meter.Int64Counter("estateloyalty_sessions_total")
	if err != nil {
		return nil, err
	}
	spendFetch, err := meter.Float64Histogram("estateloyalty_spend_fetch_duration_seconds",
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		refreshes:     refreshes,
		staleDropped:  staleDropped,
		tierChanges:   tierChanges,
		spendFailures: spendFailures,
		sessions:      sessions,
		spendFetch:    spendFetch,
	}, nil
}

// RecordRefresh counts a membership refresh by outcome (applied, stale, failed).
func (m *Metrics) RecordRefresh(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStaleDropped counts a fetch result discarded because a later one was applied.
func (m *Metrics) RecordStaleDropped(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tier", strings.TrimSpace(tier)))
	m.staleDropped.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTierChange counts tier transitions.
func (m *Metrics) RecordTierChange(ctx context.Context, previous, current string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("previous_tier", strings.TrimSpace(previous)),
		attribute.String("tier", strings.TrimSpace(current)),
	)
	m.tierChanges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSpendFailure counts failed spend fetches.
func (m *Metrics) RecordSpendFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.spendFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSpendFetch records how long a spend fetch took.
func (m *Metrics) RecordSpendFetch(ctx context.Context, elapsed time.Duration, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.spendFetch.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSession counts session lifecycle events (opened, closed, expired).
func (m *Metrics) RecordSession(ctx context.Context, event string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event", strings.TrimSpace(event)))
	m.sessions.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"tier":          {},
	"previous_tier": {},
	"result":        {},
	"reason":        {},
	"event":         {},
	"route":         {},
	"status_code":   {},
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
