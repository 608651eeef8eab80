package dataset

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// SolutionsDir is the directory name under which extracted solutions are laid
// out as <year>/<task>/<user>/<file>.
const SolutionsDir = "extracted_solutions"

// Resolver normalises file identifiers so that the same file compares equal
// across the benchmark and a detector's output.
type Resolver struct {
	// BaseDir anchors relative paths. Empty means the working directory.
	BaseDir string
}

// Resolve returns path as an absolute, cleaned path with symlinks evaluated
// when the file exists. An empty path stays empty.
func (r Resolver) Resolve(path string) string {
	if path == "" {
		return ""
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(r.BaseDir, resolved)
	}

	abs, absErr := filepath.Abs(resolved)
	if absErr == nil {
		resolved = abs
	}

	target, linkErr := filepath.EvalSymlinks(resolved)
	if linkErr == nil {
		resolved = target
	}

	return resolved
}

// ResolvePair resolves both file identifiers of cp.
func (r Resolver) ResolvePair(cp cmatch.ClonePair) cmatch.ClonePair {
	cp.A.File = r.Resolve(cp.A.File)
	cp.B.File = r.Resolve(cp.B.File)

	return cp
}

// ResolvePairs resolves every pair in place.
func (r Resolver) ResolvePairs(pairs []cmatch.ClonePair) {
	for i := range pairs {
		pairs[i] = r.ResolvePair(pairs[i])
	}
}

// TaskID extracts the task identifier from a solution path of the form
// .../extracted_solutions/<year>/<task>/<user>/<file>.
func TaskID(path string) (string, bool) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")

	idx := slices.Index(parts, SolutionsDir)
	if idx < 0 || len(parts) <= idx+2 || parts[idx+2] == "" {
		return "", false
	}

	return parts[idx+2], true
}

// AssignGroups sets the group of every ungrouped pair to the task id of its
// first file, where one can be extracted. It returns how many pairs carry a
// group afterwards.
func AssignGroups(pairs []cmatch.ClonePair) int {
	grouped := 0

	for i := range pairs {
		if pairs[i].Group == nil {
			if task, ok := TaskID(pairs[i].A.File); ok {
				pairs[i].Group = task
			}
		}

		if pairs[i].Group != nil {
			grouped++
		}
	}

	return grouped
}
