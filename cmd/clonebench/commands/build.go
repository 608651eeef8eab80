package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clonebench/internal/dataset"
	"github.com/Sumatoshi-tech/clonebench/internal/gcj"
	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
)

type buildOptions struct {
	input     string
	year      string
	solutions string
	output    string
	languages []string
}

// NewBuildCommand creates the build command.
func NewBuildCommand(g *GlobalOptions) *cobra.Command {
	bo := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a benchmark from a Google Code Jam export",
		Long: `Extract one year's solutions from a Google Code Jam CSV export into
<solutions>/<year>/<task>/<user>/<file> and write a benchmark CSV in which
every pair of solutions to the same task is a whole-file reference clone.

Benchmark paths are written relative to the output CSV's directory.`,
		Example: `  clonebench build --input gcj2017.csv --year 2017
  clonebench build --input gcj2017.csv --year 2017 --language Python --language Go --output out/clones_2017.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, g, bo)
		},
	}

	cmd.Flags().StringVar(&bo.input, "input", "", "Google Code Jam CSV export")
	cmd.Flags().StringVar(&bo.year, "year", "", "Competition year to extract")
	cmd.Flags().StringVar(&bo.solutions, "solutions", "", "Directory receiving extracted solutions (default from config: extracted_solutions)")
	cmd.Flags().StringVarP(&bo.output, "output", "o", "", "Benchmark CSV to write (default: clones_<year>.csv)")
	cmd.Flags().StringSliceVar(&bo.languages, "language", nil, "Languages to keep, as detected by file name; \"all\" keeps every language (default from config: Python)")

	return cmd
}

func runBuild(cmd *cobra.Command, g *GlobalOptions, bo *buildOptions) error {
	if bo.input == "" || bo.year == "" {
		return fmt.Errorf("%w: --input and --year", ErrMissingFlag)
	}

	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("solutions") {
		cfg.Build.SolutionsDir = bo.solutions
	}

	if cmd.Flags().Changed("language") {
		cfg.Build.Languages = bo.languages
	}

	rt, err := start(cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer rt.close()

	output := bo.output
	if output == "" {
		output = fmt.Sprintf("clones_%s.csv", bo.year)
	}

	builder, err := gcj.NewBuilder(gcj.Options{
		Year:         bo.year,
		SolutionsDir: cfg.Build.SolutionsDir,
		RelativeTo:   filepath.Dir(output),
		Languages:    cfg.Build.Languages,
		Logger:       rt.logger(),
	})
	if err != nil {
		return err
	}

	ctx, span := rt.providers.Tracer.Start(cmd.Context(), "clonebench.build")
	defer span.End()

	in, err := os.Open(bo.input)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer in.Close()

	pairs, stats, err := builder.Build(ctx, in)
	if err != nil {
		return err
	}

	writeErr := writeReport(nil, output, func(w io.Writer) error {
		return dataset.WriteBenchmark(w, pairs)
	})
	if writeErr != nil {
		return fmt.Errorf("write benchmark: %w", writeErr)
	}

	rt.logger().InfoContext(ctx, "benchmark built",
		"output", output,
		"solutions", stats.Solutions,
		"tasks", stats.Tasks,
		"pairs", stats.Pairs,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates,
		"write_errors", stats.WriteErrors,
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d pairs from %d solutions in %d tasks to %s\n",
		stats.Pairs, stats.Solutions, stats.Tasks, output)

	return nil
}
