// Package detector implements a line-set pseudo detector. It reports a
// benchmark pair as a whole-file clone when the two files share enough
// normalised lines, and serves as a baseline for exercising the evaluation
// pipeline end to end.
package detector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/Sumatoshi-tech/clonebench/internal/dataset"
	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// ErrInvalidThreshold is returned for a similarity threshold outside (0, 1].
var ErrInvalidThreshold = errors.New("similarity threshold must be in (0, 1]")

// LineSet is the set of normalised lines of one file.
type LineSet map[string]struct{}

// Options configures a Detector.
type Options struct {
	Threshold float64
	// Resolver locates the files named by the input pairs.
	Resolver dataset.Resolver
	Logger   *slog.Logger
}

// Stats summarises one detection run.
type Stats struct {
	Pairs    int `json:"pairs"`
	Detected int `json:"detected"`
	Missing  int `json:"missing"`
	Empty    int `json:"empty"`
}

// Detector compares the files of clone pairs by shared lines.
type Detector struct {
	opts   Options
	logger *slog.Logger
	files  map[string]*fileInfo
}

type fileInfo struct {
	lines   LineSet
	count   int
	missing bool
}

// New validates opts and returns a Detector.
func New(opts Options) (*Detector, error) {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, opts.Threshold)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Detector{opts: opts, logger: logger, files: make(map[string]*fileInfo)}, nil
}

// Detect returns a whole-file detection for every input pair whose line sets
// are similar enough. Output pairs keep the input file names. Pairs with a
// missing file or an empty line set are skipped and counted.
func (d *Detector) Detect(ctx context.Context, pairs []cmatch.ClonePair) ([]cmatch.ClonePair, Stats, error) {
	stats := Stats{Pairs: len(pairs)}

	var out []cmatch.ClonePair

	for _, cp := range pairs {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, stats, ctxErr
		}

		fa, err := d.load(cp.A.File)
		if err != nil {
			return nil, stats, err
		}

		fb, err := d.load(cp.B.File)
		if err != nil {
			return nil, stats, err
		}

		if fa.missing || fb.missing {
			stats.Missing++

			continue
		}

		if len(fa.lines) == 0 || len(fb.lines) == 0 {
			stats.Empty++

			continue
		}

		if Similarity(fa.lines, fb.lines) < d.opts.Threshold {
			continue
		}

		out = append(out, cmatch.ClonePair{
			A:     cmatch.Fragment{File: cp.A.File, Start: 0, End: max(fa.count-1, 0)},
			B:     cmatch.Fragment{File: cp.B.File, Start: 0, End: max(fb.count-1, 0)},
			Group: cp.Group,
		})
	}

	stats.Detected = len(out)

	d.logger.InfoContext(ctx, "pseudo detection finished",
		"pairs", stats.Pairs, "detected", stats.Detected, "missing", stats.Missing, "empty", stats.Empty)

	return out, stats, nil
}

func (d *Detector) load(name string) (*fileInfo, error) {
	if info, ok := d.files[name]; ok {
		return info, nil
	}

	path := d.opts.Resolver.Resolve(name)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		d.logger.Warn("file not found", "path", path)

		info := &fileInfo{missing: true}
		d.files[name] = info

		return info, nil
	}

	lines, count := Normalize(string(data))
	info := &fileInfo{lines: lines, count: count}
	d.files[name] = info

	return info, nil
}

// Normalize splits text into lines and returns the set of trimmed, non-empty
// lines that are not '#' comments, together with the raw line count. A
// trailing newline does not start a new line here.
func Normalize(text string) (LineSet, int) {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	if text == "" {
		return LineSet{}, 0
	}

	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	set := make(LineSet, len(raw))

	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		set[line] = struct{}{}
	}

	return set, len(raw)
}

// Similarity is the share of the smaller set found in the larger one,
// |a ∩ b| / min(|a|, |b|). It is 0 when either set is empty.
func Similarity(a, b LineSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	shared := 0

	for line := range small {
		if _, ok := large[line]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(small))
}
