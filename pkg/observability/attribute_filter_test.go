package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
)

func attributeKey(key string) attribute.Key {
	return attribute.Key(key)
}

func TestAttributeFilter(t *testing.T) {
	t.Parallel()

	var logBuf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), logger)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "evaluate")
	span.SetAttributes(
		attribute.Float64("clonebench.threshold", 0.7),
		attribute.Int("dataset.rows", 12),
		attribute.String("clonebench.path", "/data/extracted_solutions/2017/T1/alice/q3.py"),
		attribute.String("report.path", "out/clones_2017.html"),
		attribute.String("user.email", "alice@example.com"),
		attribute.Bool("error", true),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	attrs := make(map[string]any)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}

	assert.Equal(t, map[string]any{
		"clonebench.threshold": 0.7,
		"clonebench.path":      "q3.py",
		"dataset.rows":         int64(12),
		"report.path":          "clones_2017.html",
		"error":                true,
	}, attrs)
	assert.NotContains(t, logBuf.String(), "key=clonebench.path")
	assert.Contains(t, logBuf.String(), "key=user.email")
}
