package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clonebench/internal/dataset"
	"github.com/Sumatoshi-tech/clonebench/internal/detector"
	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
)

const defaultDetectThreshold = 0.7

// NewDetectCommand creates the detect command.
func NewDetectCommand(g *GlobalOptions) *cobra.Command {
	var (
		benchmark, output, baseDir string
		threshold                  float64
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run the line-set pseudo detector over a benchmark",
		Long: `For every benchmark pair, compare the normalised non-comment lines of both
files and report the pair as a whole-file clone when the share of common
lines reaches the threshold. The output CSV can be fed to evaluate or ingest
to exercise the pipeline end to end.`,
		Example: `  clonebench detect --benchmark clones_2017.csv --output pseudo.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if benchmark == "" || output == "" {
				return fmt.Errorf("%w: --benchmark and --output", ErrMissingFlag)
			}

			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("base-dir") {
				cfg.Benchmark.BaseDir = baseDir
			}

			rt, err := start(cfg, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.close()

			return runDetect(cmd, rt, benchmark, output, threshold)
		},
	}

	cmd.Flags().StringVar(&benchmark, "benchmark", "", "Benchmark CSV whose pairs are examined")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Detections CSV to write")
	cmd.Flags().Float64Var(&threshold, "threshold", defaultDetectThreshold, "Share of common lines in (0, 1] needed to report a pair")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Directory anchoring relative benchmark paths (default: the benchmark's directory)")

	return cmd
}

func runDetect(cmd *cobra.Command, rt *runtime, benchmark, output string, threshold float64) error {
	ctx, span := rt.providers.Tracer.Start(cmd.Context(), "clonebench.detect")
	defer span.End()

	det, err := detector.New(detector.Options{Threshold: threshold, Logger: rt.logger()})
	if err != nil {
		return err
	}

	baseDir := rt.cfg.Benchmark.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(benchmark)
	}

	in, err := os.Open(benchmark)
	if err != nil {
		return fmt.Errorf("open benchmark: %w", err)
	}
	defer in.Close()

	pairs, err := dataset.ReadBenchmark(in, dataset.Resolver{BaseDir: baseDir})
	if err != nil {
		return fmt.Errorf("read benchmark %s: %w", benchmark, err)
	}

	detected, stats, err := det.Detect(ctx, pairs)
	if err != nil {
		return err
	}

	writeErr := writeReport(nil, output, func(w io.Writer) error {
		return dataset.WriteDetections(w, detected)
	})
	if writeErr != nil {
		return fmt.Errorf("write detections: %w", writeErr)
	}

	rt.logger().InfoContext(ctx, "pseudo detection complete",
		"pairs", stats.Pairs,
		"detected", stats.Detected,
		"missing", stats.Missing,
		"empty", stats.Empty,
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Detected %d of %d pairs; wrote %s\n", stats.Detected, stats.Pairs, output)

	return nil
}
