package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestObservability_RecordsRequests(t *testing.T) {
	reader := metric.NewManualReader()
	obs := newWithProvider(metric.NewMeterProvider(metric.WithReader(reader)), "test")
	defer obs.Shutdown()

	ctx := context.Background()
	obs.RecordRequest(ctx, "kpis", "fallback", 12*time.Millisecond)
	obs.RecordRequest(ctx, "kpis", "live", 3*time.Millisecond)
	obs.RecordFanOut(ctx, "kpis", 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
		if m.Name == "dashboard.requests.processed" {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			assert.Equal(t, int64(2), total)
		}
	}
	assert.True(t, names["dashboard.requests.duration"])
	assert.True(t, names["dashboard.aggregation.fanout"])
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	obs.RecordRequest(context.Background(), "kpis", "live", time.Millisecond)
	obs.RecordFanOut(context.Background(), "kpis", 1)
	obs.Shutdown()

	NewNoop().RecordRequest(context.Background(), "kpis", "live", time.Millisecond)
}
