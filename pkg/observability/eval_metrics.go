package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricEvaluationsTotal   = "clonebench.evaluations.total"
	metricPairsTotal         = "clonebench.pairs.total"
	metricOutcomesTotal      = "clonebench.outcomes.total"
	metricEvaluationDuration = "clonebench.evaluation.duration.seconds"
	metricDroppedRowsTotal   = "clonebench.dropped.rows.total"

	attrKind    = "kind"
	attrOutcome = "outcome"
)

// durationBucketBoundaries covers 10ms to 600s for analysis workloads.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// EvaluationStats is what one evaluation reports to EvalMetrics.
type EvaluationStats struct {
	References  int
	Candidates  int
	TP, FP, FN  int
	DroppedRows int
	Duration    time.Duration
	Failed      bool
}

// EvalMetrics holds the instruments describing evaluation runs.
type EvalMetrics struct {
	evaluations metric.Int64Counter
	pairs       metric.Int64Counter
	outcomes    metric.Int64Counter
	dropped     metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewEvalMetrics creates evaluation instruments from mt.
func NewEvalMetrics(mt metric.Meter) (*EvalMetrics, error) {
	evaluations, err := mt.Int64Counter(metricEvaluationsTotal,
		metric.WithDescription("Evaluations run, by status"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEvaluationsTotal, err)
	}

	pairs, err := mt.Int64Counter(metricPairsTotal,
		metric.WithDescription("Clone pairs loaded, by kind"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPairsTotal, err)
	}

	outcomes, err := mt.Int64Counter(metricOutcomesTotal,
		metric.WithDescription("Scored outcomes, by tp/fp/fn"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOutcomesTotal, err)
	}

	dropped, err := mt.Int64Counter(metricDroppedRowsTotal,
		metric.WithDescription("Detector rows dropped for malformed coordinates"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDroppedRowsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricEvaluationDuration,
		metric.WithDescription("Evaluation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEvaluationDuration, err)
	}

	return &EvalMetrics{
		evaluations: evaluations,
		pairs:       pairs,
		outcomes:    outcomes,
		dropped:     dropped,
		duration:    duration,
	}, nil
}

// RecordEvaluation records one finished evaluation. A nil receiver is a no-op.
func (em *EvalMetrics) RecordEvaluation(ctx context.Context, stats EvaluationStats) {
	if em == nil {
		return
	}

	status := StatusOK
	if stats.Failed {
		status = StatusError
	}

	em.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
	em.duration.Record(ctx, stats.Duration.Seconds(), metric.WithAttributes(attribute.String(attrStatus, status)))

	if stats.Failed {
		return
	}

	em.pairs.Add(ctx, int64(stats.References), metric.WithAttributes(attribute.String(attrKind, "reference")))
	em.pairs.Add(ctx, int64(stats.Candidates), metric.WithAttributes(attribute.String(attrKind, "candidate")))

	em.outcomes.Add(ctx, int64(stats.TP), metric.WithAttributes(attribute.String(attrOutcome, "tp")))
	em.outcomes.Add(ctx, int64(stats.FP), metric.WithAttributes(attribute.String(attrOutcome, "fp")))
	em.outcomes.Add(ctx, int64(stats.FN), metric.WithAttributes(attribute.String(attrOutcome, "fn")))

	if stats.DroppedRows > 0 {
		em.dropped.Add(ctx, int64(stats.DroppedRows))
	}
}
