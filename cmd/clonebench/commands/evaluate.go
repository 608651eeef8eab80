package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clonebench/internal/evaluate"
	"github.com/Sumatoshi-tech/clonebench/internal/report"
	"github.com/Sumatoshi-tech/clonebench/pkg/config"
	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
)

// ErrMissingFlag is returned when a required input flag is empty.
var ErrMissingFlag = errors.New("required flag not set")

const (
	outputDirPerm  = 0o750
	outputFilePerm = 0o644
)

type evaluateOptions struct {
	benchmark    string
	detections   string
	baseDir      string
	source       string
	table        string
	threshold    float64
	noEmptyMatch bool
	workers      int
	format       string
	output       string
	misses       int
	noColor      bool
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(g *GlobalOptions) *cobra.Command {
	eo := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score detector output against a clone benchmark",
		Long: `Match a detector's clone pairs against the benchmark's reference pairs with
the c-match criterion and report precision, recall and F1.

Detections are read from a SQLite result store, or from a CSV file when the
path ends in .csv or --source csv is given. Benchmark paths are resolved
against --base-dir, which defaults to the benchmark file's directory.`,
		Example: `  clonebench evaluate --benchmark benchmark_output/clones_2017.csv --detections results/nicad.db
  clonebench evaluate --benchmark clones_2017.csv --detections found.csv --format json --output report.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, g, eo)
		},
	}

	cmd.Flags().StringVar(&eo.benchmark, "benchmark", "", "Benchmark CSV with reference clone pairs")
	cmd.Flags().StringVar(&eo.detections, "detections", "", "Detector output: SQLite database or CSV file")
	cmd.Flags().StringVar(&eo.baseDir, "base-dir", "", "Directory anchoring relative benchmark paths (default: the benchmark's directory)")
	cmd.Flags().StringVar(&eo.source, "source", config.SourceAuto, "Detections source: auto, sqlite, csv")
	cmd.Flags().StringVar(&eo.table, "table", "", "Detector result table (default from config: detected_clones)")
	cmd.Flags().Float64Var(&eo.threshold, "threshold", config.DefaultThreshold, "Minimum coverage ratio in (0, 1]")
	cmd.Flags().BoolVar(&eo.noEmptyMatch, "no-empty-match", false, "Do not let two empty fragments match each other")
	cmd.Flags().IntVar(&eo.workers, "workers", config.DefaultWorkers, "Task groups matched in parallel")
	cmd.Flags().StringVar(&eo.format, "format", config.DefaultFormat, "Output format: text, json, yaml, plot")
	cmd.Flags().StringVarP(&eo.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().IntVar(&eo.misses, "misses", config.DefaultMaxMisses, "Unmatched references listed in the text report (0 hides them)")
	cmd.Flags().BoolVar(&eo.noColor, "no-color", false, "Disable colored text output")

	return cmd
}

func (eo *evaluateOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("base-dir") {
		cfg.Benchmark.BaseDir = eo.baseDir
	}

	if flags.Changed("source") {
		cfg.Detector.Source = eo.source
	}

	if flags.Changed("table") {
		cfg.Detector.Table = eo.table
	}

	if flags.Changed("threshold") {
		cfg.Evaluation.Threshold = eo.threshold
	}

	if flags.Changed("no-empty-match") {
		cfg.Evaluation.EmptyMatch = !eo.noEmptyMatch
	}

	if flags.Changed("workers") {
		cfg.Evaluation.Workers = eo.workers
	}

	if flags.Changed("format") {
		cfg.Report.Format = eo.format
	}

	if flags.Changed("misses") {
		cfg.Report.MaxMisses = eo.misses
	}

	if flags.Changed("no-color") {
		cfg.Report.NoColor = eo.noColor
	}
}

func runEvaluate(cmd *cobra.Command, g *GlobalOptions, eo *evaluateOptions) error {
	if eo.benchmark == "" || eo.detections == "" {
		return fmt.Errorf("%w: --benchmark and --detections", ErrMissingFlag)
	}

	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}

	eo.apply(cmd, cfg)

	rt, err := start(cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer rt.close()

	evalMetrics, err := observability.NewEvalMetrics(rt.providers.Meter)
	if err != nil {
		return err
	}

	svc := evaluate.NewService(evaluate.Deps{
		Logger:  rt.logger(),
		Tracer:  rt.providers.Tracer,
		Metrics: evalMetrics,
	})

	res, err := svc.Run(cmd.Context(), evaluate.Request{
		BenchmarkPath:  eo.benchmark,
		BaseDir:        cfg.Benchmark.BaseDir,
		DetectionsPath: eo.detections,
		Source:         cfg.Detector.Source,
		Table:          cfg.Detector.Table,
		Threshold:      cfg.Evaluation.Threshold,
		EmptyPolicy:    cfg.EmptyPolicy(),
		Workers:        cfg.Evaluation.Workers,
	})
	if err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), eo.output, func(w io.Writer) error {
		return report.Render(w, res, cfg.Report.Format, report.Options{
			NoColor:   cfg.Report.NoColor || eo.output != "",
			MaxMisses: cfg.Report.MaxMisses,
		})
	})
}

// writeReport runs render against the file at path, creating its directory,
// or against stdout when path is empty.
func writeReport(stdout io.Writer, path string, render func(io.Writer) error) error {
	if path == "" {
		return render(stdout)
	}

	mkErr := os.MkdirAll(filepath.Dir(path), outputDirPerm)
	if mkErr != nil {
		return fmt.Errorf("create output dir: %w", mkErr)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePerm)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	renderErr := render(f)
	closeErr := f.Close()

	return errors.Join(renderErr, closeErr)
}
