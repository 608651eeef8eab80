package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// DetectionStats counts what happened to the rows of a detector CSV.
type DetectionStats struct {
	Rows    int `json:"rows"    yaml:"rows"`
	Kept    int `json:"kept"    yaml:"kept"`
	Dropped int `json:"dropped" yaml:"dropped"`
}

// ReadDetections parses a detector CSV. Rows whose coordinates are not
// numeric are dropped and counted instead of failing the read. A task_id
// column is optional; when present and non-blank it sets the pair group.
// Paths are resolved with res.
func ReadDetections(r io.Reader, res Resolver) ([]cmatch.ClonePair, DetectionStats, error) {
	var stats DetectionStats

	cr := newCSVReader(r)

	h, err := readHeader(cr, pairColumns)
	if err != nil {
		return nil, stats, err
	}

	var pairs []cmatch.ClonePair

	for {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, stats, fmt.Errorf("detections row %d: %w", stats.Rows+1, readErr)
		}

		stats.Rows++

		cp, parseErr := h.parsePair(record)
		if parseErr != nil {
			stats.Dropped++

			continue
		}

		if task := h.get(record, ColTaskID); task != "" {
			cp.Group = task
		}

		pairs = append(pairs, res.ResolvePair(cp))
	}

	stats.Kept = len(pairs)

	return pairs, stats, nil
}

// WriteDetections writes pairs in the detector CSV layout, without a task_id column.
func WriteDetections(w io.Writer, pairs []cmatch.ClonePair) error {
	cw := csv.NewWriter(w)

	headerErr := cw.Write(pairColumns)
	if headerErr != nil {
		return fmt.Errorf("write header: %w", headerErr)
	}

	for _, cp := range pairs {
		writeErr := cw.Write(pairRecord(cp))
		if writeErr != nil {
			return fmt.Errorf("write pair %s: %w", cp.A, writeErr)
		}
	}

	cw.Flush()

	return cw.Error()
}
