package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("customer_id", "cust-1"),
		attribute.String("session_id", "sess-1"),
		attribute.String("tier", "Gold"),
		attribute.String("result", "applied"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("tier"), attrs[0].Key)
	assert.Equal(t, attribute.Key("result"), attrs[1].Key)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRefresh(context.Background(), "applied")
	m.RecordTierChange(context.Background(), "Sapphire", "Gold")
	m.RecordSpendFetch(context.Background(), time.Second, "ok")
}

func TestRecordTierChange(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "estateloyalty-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordTierChange(ctx, "Sapphire", "Gold")
	m.RecordTierChange(ctx, "Sapphire", "Gold")
	m.RecordRefresh(ctx, "stale")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, point := range sum.DataPoints {
				counts[metric.Name] += point.Value
			}
		}
	}

	assert.Equal(t, int64(2), counts["estateloyalty_membership_tier_changes_total"])
	assert.Equal(t, int64(1), counts["estateloyalty_membership_refresh_total"])
}
