package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// utf8BOM is stripped from the first header cell; spreadsheet exports add it.
const utf8BOM = "\uFEFF"

// maxCoordinate bounds float coordinates to values an int line number can hold.
const maxCoordinate = 1 << 53

// header maps column names to their index in a CSV record.
type header map[string]int

func readHeader(r *csv.Reader, required []string) (header, error) {
	names, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file, want %s", ErrMissingColumn, strings.Join(required, ","))
		}

		return nil, fmt.Errorf("read header: %w", err)
	}

	h := make(header, len(names))

	for i, name := range names {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}

		h[strings.TrimSpace(name)] = i
	}

	var missing []string

	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	return h, nil
}

func (h header) get(record []string, col string) string {
	idx, ok := h[col]
	if !ok || idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	return cr
}

// parseCoordinate accepts decimal integers and any finite number such as
// "12.0" or "12.5", which numeric spreadsheet columns tend to produce.
// Fractions are truncated toward zero, as the ingestion into the detector
// table always did.
func parseCoordinate(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= maxCoordinate {
		return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
	}

	return int(math.Trunc(f)), nil
}

// parsePair reads the six pair columns of one record. Paths are returned as written.
func (h header) parsePair(record []string) (cmatch.ClonePair, error) {
	var coords [4]int

	for i, col := range []string{ColFile1Start, ColFile1End, ColFile2Start, ColFile2End} {
		n, err := parseCoordinate(h.get(record, col))
		if err != nil {
			return cmatch.ClonePair{}, fmt.Errorf("%s: %w", col, err)
		}

		coords[i] = n
	}

	return cmatch.ClonePair{
		A: cmatch.Fragment{File: h.get(record, ColFile1Path), Start: coords[0], End: coords[1]},
		B: cmatch.Fragment{File: h.get(record, ColFile2Path), Start: coords[2], End: coords[3]},
	}, nil
}

func pairRecord(cp cmatch.ClonePair) []string {
	return []string{
		cp.A.File, strconv.Itoa(cp.A.Start), strconv.Itoa(cp.A.End),
		cp.B.File, strconv.Itoa(cp.B.Start), strconv.Itoa(cp.B.End),
	}
}

// groupString renders a group key for output; unresolved and unsupported keys are blank.
func groupString(key any) string {
	s, err := cmatch.CanonicalGroup(key)
	if err != nil {
		return ""
	}

	return s
}
