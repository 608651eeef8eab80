package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clonebench/internal/dataset"
	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand(g *GlobalOptions) *cobra.Command {
	var csvPath, dbPath, table string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a detector CSV into a SQLite result store",
		Long: `Read a detector's clone pairs from CSV and store them in a SQLite table,
replacing any previous contents of that table. Rows with non-numeric line
numbers are dropped and counted. File paths are stored as absolute paths.`,
		Example: `  clonebench ingest --csv nicad_output.csv --db results/nicad.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if csvPath == "" || dbPath == "" {
				return fmt.Errorf("%w: --csv and --db", ErrMissingFlag)
			}

			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("table") {
				cfg.Detector.Table = table
			}

			rt, err := start(cfg, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.close()

			return runIngest(cmd, rt, csvPath, dbPath)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Detector output CSV")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to write (created if missing)")
	cmd.Flags().StringVar(&table, "table", "", "Destination table (default from config: detected_clones)")

	return cmd
}

func runIngest(cmd *cobra.Command, rt *runtime, csvPath, dbPath string) error {
	ctx, span := rt.providers.Tracer.Start(cmd.Context(), "clonebench.ingest")
	defer span.End()

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open detections: %w", err)
	}
	defer f.Close()

	pairs, stats, err := dataset.ReadDetections(f, dataset.Resolver{})
	if err != nil {
		return fmt.Errorf("read %s: %w", csvPath, err)
	}

	store, err := dataset.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	table := rt.cfg.Detector.Table

	err = store.ReplaceDetections(ctx, table, pairs)
	if err != nil {
		return err
	}

	rt.logger().InfoContext(ctx, "detections ingested",
		"table", table,
		"rows", stats.Rows,
		"stored", stats.Kept,
		"dropped", stats.Dropped,
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d pairs in %s (table %s); dropped %d rows\n", stats.Kept, dbPath, table, stats.Dropped)

	return nil
}
