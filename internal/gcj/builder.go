// Package gcj builds a clone benchmark from a Google Code Jam solutions
// export: every pair of same-language solutions to the same task is a
// whole-file reference clone pair.
package gcj

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// Sentinel errors.
var (
	ErrNoYear      = errors.New("year is required")
	ErrNoLanguages = errors.New("at least one language is required")
)

// Export column names.
const (
	colYear     = "year"
	colTask     = "task"
	colUsername = "username"
	colFile     = "file"
	colSource   = "flines"
)

// allLanguages accepts every detected language.
const allLanguages = "all"

// DefaultLanguage is the language the published benchmark was built for.
const DefaultLanguage = "Python"

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Options configures a Builder.
type Options struct {
	// Year selects the competition year; rows of other years are skipped.
	Year string
	// SolutionsDir receives the extracted files as <year>/<task>/<user>/<file>.
	SolutionsDir string
	// RelativeTo, when set, makes benchmark paths relative to this directory.
	RelativeTo string
	// Languages are enry language names; "all" keeps every recognised file.
	Languages []string
	Logger    *slog.Logger
}

// BuildStats summarises one build.
type BuildStats struct {
	Rows        int `json:"rows"`
	Solutions   int `json:"solutions"`
	Tasks       int `json:"tasks"`
	Pairs       int `json:"pairs"`
	Skipped     int `json:"skipped"`
	Duplicates  int `json:"duplicates"`
	WriteErrors int `json:"write_errors"`
}

// Builder extracts solutions and derives reference clone pairs.
type Builder struct {
	opts      Options
	languages map[string]bool
	logger    *slog.Logger
}

type solution struct {
	path  string
	lines int
}

// NewBuilder validates opts and returns a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Year == "" {
		return nil, ErrNoYear
	}

	if len(opts.Languages) == 0 {
		return nil, ErrNoLanguages
	}

	languages := make(map[string]bool, len(opts.Languages))
	for _, lang := range opts.Languages {
		languages[strings.ToLower(strings.TrimSpace(lang))] = true
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{opts: opts, languages: languages, logger: logger}, nil
}

// Build reads the export from r, writes the selected solutions below
// SolutionsDir and returns one reference pair per unordered pair of
// solutions within a task. Tasks and solutions keep their order of first
// appearance in the export.
func (b *Builder) Build(ctx context.Context, r io.Reader) ([]cmatch.ClonePair, BuildStats, error) {
	var stats BuildStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read export header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var taskOrder []string

	byTask := make(map[string][]solution)
	seen := make(map[string]bool)

	for {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, stats, ctxErr
		}

		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, stats, fmt.Errorf("export row %d: %w", stats.Rows+1, readErr)
		}

		stats.Rows++

		task, sol, ok := b.extract(cols, record, seen, &stats)
		if !ok {
			continue
		}

		if _, known := byTask[task]; !known {
			taskOrder = append(taskOrder, task)
		}

		byTask[task] = append(byTask[task], sol)
		stats.Solutions++
	}

	stats.Tasks = len(taskOrder)

	var pairs []cmatch.ClonePair

	for _, task := range taskOrder {
		sols := byTask[task]

		for i := range sols {
			for j := i + 1; j < len(sols); j++ {
				pairs = append(pairs, cmatch.ClonePair{
					A:     wholeFile(sols[i]),
					B:     wholeFile(sols[j]),
					Group: task,
				})
			}
		}
	}

	stats.Pairs = len(pairs)

	b.logger.InfoContext(ctx, "benchmark built",
		"year", b.opts.Year, "solutions", stats.Solutions, "tasks", stats.Tasks,
		"pairs", stats.Pairs, "skipped", stats.Skipped)

	return pairs, stats, nil
}

// extract filters one export row and writes its solution file. A solution
// whose target path was already written is a duplicate and is skipped.
func (b *Builder) extract(
	cols map[string]int,
	record []string,
	seen map[string]bool,
	stats *BuildStats,
) (string, solution, bool) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}

		return record[idx]
	}

	year, task, user := strings.TrimSpace(field(colYear)), strings.TrimSpace(field(colTask)), strings.TrimSpace(field(colUsername))
	name, source := field(colFile), field(colSource)

	if year == "" || task == "" || user == "" || name == "" || source == "" {
		stats.Skipped++

		return "", solution{}, false
	}

	if year != b.opts.Year || !b.accepts(name, source) {
		stats.Skipped++

		return "", solution{}, false
	}

	fileName := SafeFileName(name)

	if !safeComponent(task) || !safeComponent(user) || !safeComponent(fileName) {
		b.logger.Warn("unsafe path component in export row", "task", task, "user", user, "file", name)

		stats.Skipped++

		return "", solution{}, false
	}

	dir := filepath.Join(b.opts.SolutionsDir, year, task, user)
	path := filepath.Join(dir, fileName)

	if seen[path] {
		stats.Duplicates++

		return "", solution{}, false
	}

	source = strings.ToValidUTF8(source, "")

	mkErr := os.MkdirAll(dir, dirPerm)
	if mkErr == nil {
		mkErr = os.WriteFile(path, []byte(source), filePerm)
	}

	if mkErr != nil {
		b.logger.Warn("failed to write solution", "path", path, "error", mkErr)

		stats.WriteErrors++

		return "", solution{}, false
	}

	seen[path] = true

	return task, solution{path: b.benchmarkPath(path), lines: CountLines(source)}, true
}

func (b *Builder) accepts(name, source string) bool {
	if b.languages[allLanguages] {
		return true
	}

	lang := enry.GetLanguage(filepath.Base(name), nil)
	if lang == "" {
		lang = enry.GetLanguage(filepath.Base(name), []byte(source))
	}

	if lang == "" {
		return false
	}

	return b.languages[strings.ToLower(lang)]
}

func (b *Builder) benchmarkPath(path string) string {
	if b.opts.RelativeTo == "" {
		return path
	}

	target, targetErr := filepath.Abs(path)
	base, baseErr := filepath.Abs(b.opts.RelativeTo)

	if targetErr != nil || baseErr != nil {
		return path
	}

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return path
	}

	return filepath.ToSlash(rel)
}

func wholeFile(sol solution) cmatch.Fragment {
	return cmatch.Fragment{File: sol.path, Start: 0, End: max(sol.lines-1, 0)}
}

// CountLines counts lines the way the benchmark always has: newlines plus one,
// so a trailing newline opens an extra, empty line.
func CountLines(source string) int {
	return strings.Count(source, "\n") + 1
}

// SafeFileName flattens path separators in a submitted file name.
func SafeFileName(name string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(name)
}

func safeComponent(s string) bool {
	return s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
