package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// ReadBenchmark parses a benchmark CSV (clones_<year>.csv). Every row must
// carry valid integer coordinates: the benchmark is ground truth, so a bad
// row fails the whole read. File paths are resolved with res and the
// task_id column becomes the pair's group; a blank task_id leaves it nil.
func ReadBenchmark(r io.Reader, res Resolver) ([]cmatch.ClonePair, error) {
	cr := newCSVReader(r)

	h, err := readHeader(cr, benchmarkColumns)
	if err != nil {
		return nil, err
	}

	var pairs []cmatch.ClonePair

	for row := 1; ; row++ {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("benchmark row %d: %w", row, readErr)
		}

		cp, parseErr := h.parsePair(record)
		if parseErr != nil {
			return nil, fmt.Errorf("benchmark row %d: %w", row, parseErr)
		}

		if task := h.get(record, ColTaskID); task != "" {
			cp.Group = task
		}

		pairs = append(pairs, res.ResolvePair(cp))
	}

	return pairs, nil
}

// WriteBenchmark writes pairs in the benchmark CSV layout.
func WriteBenchmark(w io.Writer, pairs []cmatch.ClonePair) error {
	cw := csv.NewWriter(w)

	headerErr := cw.Write(benchmarkColumns)
	if headerErr != nil {
		return fmt.Errorf("write header: %w", headerErr)
	}

	for _, cp := range pairs {
		writeErr := cw.Write(append(pairRecord(cp), groupString(cp.Group)))
		if writeErr != nil {
			return fmt.Errorf("write pair %s: %w", cp.A, writeErr)
		}
	}

	cw.Flush()

	return cw.Error()
}
