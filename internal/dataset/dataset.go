// Package dataset reads and writes clone pair sets: benchmark CSV files,
// detector result CSV files and the SQLite detector result store.
package dataset

import (
	"errors"
)

// Sentinel errors.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrBadCoordinate = errors.New("non-numeric coordinate")
	ErrInvalidTable  = errors.New("invalid table name")
)

// CSV column names shared by benchmark and detector files.
const (
	ColFile1Path  = "file1_path"
	ColFile1Start = "file1_start"
	ColFile1End   = "file1_end"
	ColFile2Path  = "file2_path"
	ColFile2Start = "file2_start"
	ColFile2End   = "file2_end"
	ColTaskID     = "task_id"
)

// DefaultTable is the detector result table used when none is configured.
const DefaultTable = "detected_clones"

// pairColumns are the six columns describing a clone pair, in file order.
var pairColumns = []string{
	ColFile1Path, ColFile1Start, ColFile1End,
	ColFile2Path, ColFile2Start, ColFile2End,
}

// benchmarkColumns are pairColumns plus the task identifier.
var benchmarkColumns = append(append([]string{}, pairColumns...), ColTaskID)
