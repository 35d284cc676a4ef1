package tracing

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Tag keys for engine measures
var (
	KeyResult  = tag.MustNewKey("result")
	KeyHost    = tag.MustNewKey("host")
	KeyBreaker = tag.MustNewKey("breaker")
	KeyState   = tag.MustNewKey("to")
)

// Engine measures
var (
	MeasureTemplateRefresh = stats.Int64("template_refresh_total", "Template refresh attempts", stats.UnitDimensionless)
	MeasureFetchLatency    = stats.Float64("template_fetch_latency_ms", "Latency of outbound template data fetches", stats.UnitMilliseconds)
	MeasureCircuitChange   = stats.Int64("circuit_state_changes_total", "Circuit breaker state transitions", stats.UnitDimensionless)
)

// EngineViews aggregate the engine measures for the metrics exporters
var EngineViews = []*view.View{
	{
		Name:        MeasureTemplateRefresh.Name(),
		Description: MeasureTemplateRefresh.Description(),
		Measure:     MeasureTemplateRefresh,
		TagKeys:     []tag.Key{KeyResult},
		Aggregation: view.Count(),
	},
	{
		Name:        MeasureFetchLatency.Name(),
		Description: MeasureFetchLatency.Description(),
		Measure:     MeasureFetchLatency,
		TagKeys:     []tag.Key{KeyHost},
		Aggregation: view.Distribution(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	},
	{
		Name:        MeasureCircuitChange.Name(),
		Description: MeasureCircuitChange.Description(),
		Measure:     MeasureCircuitChange,
		TagKeys:     []tag.Key{KeyBreaker, KeyState},
		Aggregation: view.Count(),
	},
}

// RecordRefresh counts one refresh attempt, result is "success" or "error"
func RecordRefresh(ctx context.Context, result string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyResult, result)}, MeasureTemplateRefresh.M(1))
}

func RecordFetchLatency(ctx context.Context, host string, d time.Duration) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyHost, host)},
		MeasureFetchLatency.M(float64(d)/float64(time.Millisecond)))
}

func RecordCircuitStateChange(breaker, to string) {
	_ = stats.RecordWithTags(context.Background(),
		[]tag.Mutator{tag.Upsert(KeyBreaker, breaker), tag.Upsert(KeyState, to)},
		MeasureCircuitChange.M(1))
}
