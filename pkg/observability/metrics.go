package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricToolCalls        = "clonebench.tool.calls.total"
	metricToolCallDuration = "clonebench.tool.call.duration.seconds"
	metricToolInflight     = "clonebench.tool.calls.inflight"
	metricToolPairs        = "clonebench.tool.pairs"

	attrTool   = "tool"
	attrStatus = "status"

	// StatusOK and StatusError label a finished tool call.
	StatusOK    = "ok"
	StatusError = "error"
)

// callBuckets spans an inline match of a few pairs up to a full benchmark
// evaluation read from disk.
var callBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900}

// pairBuckets counts the reference and candidate pairs one call compares.
var pairBuckets = []float64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000}

// ToolMetrics records MCP tool calls of the c-match server. All methods are
// safe on a nil receiver, which records nothing.
type ToolMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
	pairs    metric.Int64Histogram
}

// NewToolMetrics creates the tool call instruments from mt.
func NewToolMetrics(mt metric.Meter) (*ToolMetrics, error) {
	calls, err := mt.Int64Counter(metricToolCalls,
		metric.WithDescription("MCP tool calls by tool and outcome status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCalls, err)
	}

	duration, err := mt.Float64Histogram(metricToolCallDuration,
		metric.WithDescription("Wall time of one MCP tool call, including dataset loading"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallDuration, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricToolInflight,
		metric.WithDescription("MCP tool calls currently matching"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolInflight, err)
	}

	pairs, err := mt.Int64Histogram(metricToolPairs,
		metric.WithDescription("Reference plus candidate clone pairs handed to one tool call"),
		metric.WithUnit("{pair}"),
		metric.WithExplicitBucketBoundaries(pairBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolPairs, err)
	}

	return &ToolMetrics{calls: calls, duration: duration, inflight: inflight, pairs: pairs}, nil
}

// Begin marks a call of tool as running. The returned function ends it with
// the given status.
func (tm *ToolMetrics) Begin(ctx context.Context, tool string) func(status string) {
	if tm == nil {
		return func(string) {}
	}

	start := time.Now()
	toolAttr := attribute.String(attrTool, tool)

	tm.inflight.Add(ctx, 1, metric.WithAttributes(toolAttr))

	return func(status string) {
		tm.inflight.Add(ctx, -1, metric.WithAttributes(toolAttr))
		tm.calls.Add(ctx, 1, metric.WithAttributes(toolAttr, attribute.String(attrStatus, status)))
		tm.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(toolAttr))
	}
}

// RecordPairs records how many pairs a call of tool compared.
func (tm *ToolMetrics) RecordPairs(ctx context.Context, tool string, n int) {
	if tm == nil {
		return
	}

	tm.pairs.Record(ctx, int64(n), metric.WithAttributes(attribute.String(attrTool, tool)))
}
