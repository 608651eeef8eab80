// Package evaluate runs a full c-match evaluation of detector output against
// a clone benchmark: loading both sides, matching, scoring and diagnostics.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/clonebench/internal/dataset"
	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
)

// Detector sources accepted in Request.Source.
const (
	SourceAuto   = "auto"
	SourceSQLite = "sqlite"
	SourceCSV    = "csv"
)

// Sentinel errors.
var (
	ErrNoBenchmark      = errors.New("benchmark path is required")
	ErrNoDetections     = errors.New("detections path is required")
	ErrUnknownSource    = errors.New("unknown detector source")
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")
)

const spanPrefix = "clonebench."

// Request describes one evaluation.
type Request struct {
	BenchmarkPath string
	// BaseDir anchors relative benchmark paths. Empty means the directory
	// holding the benchmark CSV.
	BaseDir        string
	DetectionsPath string
	// Source selects the detections reader. Empty or SourceAuto picks CSV
	// for a .csv extension and SQLite otherwise.
	Source      string
	Table       string
	Threshold   float64
	EmptyPolicy cmatch.EmptyPolicy
	Workers     int
}

// Deps holds the service collaborators. Nil fields fall back to defaults.
type Deps struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.EvalMetrics
}

// Service runs evaluations.
type Service struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.EvalMetrics
}

// NewService creates a Service from deps.
func NewService(deps Deps) *Service {
	svc := &Service{logger: deps.Logger, tracer: deps.Tracer, metrics: deps.Metrics}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	if svc.tracer == nil {
		svc.tracer = noop.NewTracerProvider().Tracer("")
	}

	return svc
}

// Run loads the benchmark and the detections named by req and scores them.
// Pairs with unusable group keys do not fail the run; their indices are
// reported in the result.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, spanPrefix+"evaluate")
	defer span.End()

	res, err := s.run(ctx, req, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordEvaluation(ctx, observability.EvaluationStats{Duration: time.Since(start), Failed: true})
		s.logger.ErrorContext(ctx, "evaluation failed", "error", err)

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("clonebench.references", res.References),
		attribute.Int("clonebench.candidates", res.Candidates),
		attribute.Float64("clonebench.f1", res.Metrics.F1),
	)

	return res, nil
}

func (s *Service) run(ctx context.Context, req Request, start time.Time) (*Result, error) {
	validateErr := validate(req)
	if validateErr != nil {
		return nil, validateErr
	}

	references, err := s.loadBenchmark(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates, stats, err := s.loadDetections(ctx, req)
	if err != nil {
		return nil, err
	}

	grouped := dataset.AssignGroups(candidates)

	s.logger.InfoContext(ctx, "inputs loaded",
		"references", len(references),
		"candidates", len(candidates),
		"grouped_candidates", grouped,
		"dropped_rows", stats.Dropped,
	)

	matcher := cmatch.Matcher{Threshold: req.Threshold, EmptyPolicy: req.EmptyPolicy, Workers: req.Workers}

	res, err := s.Score(ctx, matcher, references, candidates)
	if err != nil {
		return nil, err
	}

	res.Benchmark = req.BenchmarkPath
	res.Detections = req.DetectionsPath
	res.DroppedRows = stats.Dropped
	res.UngroupedCandidates = len(candidates) - grouped
	res.Elapsed = time.Since(start)

	s.metrics.RecordEvaluation(ctx, observability.EvaluationStats{
		References:  res.References,
		Candidates:  res.Candidates,
		TP:          res.Metrics.TP,
		FP:          res.Metrics.FP,
		FN:          res.Metrics.FN,
		DroppedRows: res.DroppedRows,
		Duration:    res.Elapsed,
	})

	s.logger.InfoContext(ctx, "evaluation complete",
		"tp", res.Metrics.TP,
		"fp", res.Metrics.FP,
		"fn", res.Metrics.FN,
		"f1", res.Metrics.F1,
		"elapsed", res.Elapsed,
	)

	return res, nil
}

// Score matches candidates against references and builds a result with
// metrics, per-group metrics and miss diagnostics. An invalid-input error
// from the matcher is recorded in the result, not returned.
func (s *Service) Score(ctx context.Context, m cmatch.Matcher, references, candidates []cmatch.ClonePair) (*Result, error) {
	if m.Threshold <= 0 || m.Threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, m.Threshold)
	}

	_, span := s.tracer.Start(ctx, spanPrefix+"match")
	defer span.End()

	assignment, matchErr := m.Match(references, candidates)

	res := &Result{
		Threshold:   m.Threshold,
		EmptyPolicy: m.EmptyPolicy.String(),
		References:  len(references),
		Candidates:  len(candidates),
	}

	var invalid *cmatch.InvalidInputError

	switch {
	case matchErr == nil:
	case errors.As(matchErr, &invalid):
		res.InvalidReferences = invalid.References
		res.InvalidCandidates = invalid.Candidates

		s.logger.WarnContext(ctx, "pairs with unusable group keys",
			"references", len(invalid.References),
			"candidates", len(invalid.Candidates),
		)
	default:
		span.RecordError(matchErr)

		return nil, fmt.Errorf("match: %w", matchErr)
	}

	res.Matched = assignment.Len()
	res.Links = assignment.Links()
	res.Metrics = cmatch.Score(references, candidates, assignment)
	res.Groups = cmatch.ScoreByGroup(references, candidates, assignment)
	res.Misses = describeMisses(references, candidates, m.Explain(references, candidates, assignment))

	span.SetAttributes(attribute.Int("clonebench.matched", res.Matched))

	return res, nil
}

func validate(req Request) error {
	if req.BenchmarkPath == "" {
		return ErrNoBenchmark
	}

	if req.DetectionsPath == "" {
		return ErrNoDetections
	}

	_, srcErr := detectionsSource(req)
	if srcErr != nil {
		return srcErr
	}

	if req.Threshold <= 0 || req.Threshold > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, req.Threshold)
	}

	return nil
}

func detectionsSource(req Request) (string, error) {
	switch req.Source {
	case "", SourceAuto:
		if strings.EqualFold(filepath.Ext(req.DetectionsPath), ".csv") {
			return SourceCSV, nil
		}

		return SourceSQLite, nil
	case SourceCSV, SourceSQLite:
		return req.Source, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, req.Source)
	}
}

func (s *Service) loadBenchmark(ctx context.Context, req Request) ([]cmatch.ClonePair, error) {
	_, span := s.tracer.Start(ctx, spanPrefix+"load_benchmark")
	defer span.End()

	f, err := os.Open(req.BenchmarkPath)
	if err != nil {
		return nil, fmt.Errorf("open benchmark: %w", err)
	}
	defer f.Close()

	baseDir := req.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(req.BenchmarkPath)
	}

	pairs, err := dataset.ReadBenchmark(f, dataset.Resolver{BaseDir: baseDir})
	if err != nil {
		return nil, fmt.Errorf("read benchmark %s: %w", req.BenchmarkPath, err)
	}

	span.SetAttributes(
		attribute.String("dataset.path", req.BenchmarkPath),
		attribute.Int("dataset.pairs", len(pairs)),
	)

	return pairs, nil
}

func (s *Service) loadDetections(ctx context.Context, req Request) ([]cmatch.ClonePair, dataset.DetectionStats, error) {
	ctx, span := s.tracer.Start(ctx, spanPrefix+"load_detections")
	defer span.End()

	var stats dataset.DetectionStats

	_, statErr := os.Stat(req.DetectionsPath)
	if statErr != nil {
		return nil, stats, fmt.Errorf("detections: %w", statErr)
	}

	source, err := detectionsSource(req)
	if err != nil {
		return nil, stats, err
	}

	span.SetAttributes(
		attribute.String("dataset.path", req.DetectionsPath),
		attribute.String("dataset.source", source),
	)

	if source == SourceCSV {
		return readDetectionsCSV(req.DetectionsPath)
	}

	store, err := dataset.OpenStore(req.DetectionsPath)
	if err != nil {
		return nil, stats, err
	}
	defer store.Close()

	table := req.Table
	if table == "" {
		table = dataset.DefaultTable
	}

	pairs, err := store.LoadDetections(ctx, table)
	if err != nil {
		return nil, stats, err
	}

	dataset.Resolver{}.ResolvePairs(pairs)

	stats.Rows = len(pairs)
	stats.Kept = len(pairs)

	return pairs, stats, nil
}

func readDetectionsCSV(path string) ([]cmatch.ClonePair, dataset.DetectionStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dataset.DetectionStats{}, fmt.Errorf("open detections: %w", err)
	}
	defer f.Close()

	pairs, stats, err := dataset.ReadDetections(f, dataset.Resolver{})
	if err != nil {
		return nil, stats, fmt.Errorf("read detections %s: %w", path, err)
	}

	return pairs, stats, nil
}
