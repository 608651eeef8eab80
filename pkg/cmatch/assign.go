package cmatch

import (
	"github.com/sourcegraph/conc/pool"
)

// unassigned marks an index with no counterpart.
const unassigned = -1

// Link is one reference-to-candidate correspondence of an Assignment.
type Link struct {
	Reference int `json:"reference" yaml:"reference"`
	Candidate int `json:"candidate" yaml:"candidate"`
}

// Assignment is a partial one-to-one mapping from reference indices to
// candidate indices. It is immutable once returned by Match.
type Assignment struct {
	refToCand []int
	candToRef []int
	matched   int
}

func newAssignment(references, candidates int) *Assignment {
	a := &Assignment{
		refToCand: make([]int, references),
		candToRef: make([]int, candidates),
	}

	for i := range a.refToCand {
		a.refToCand[i] = unassigned
	}

	for i := range a.candToRef {
		a.candToRef[i] = unassigned
	}

	return a
}

// Len returns the number of matched reference pairs.
func (a *Assignment) Len() int {
	return a.matched
}

// References returns the size of the reference set the assignment was built from.
func (a *Assignment) References() int {
	return len(a.refToCand)
}

// Candidates returns the size of the candidate set the assignment was built from.
func (a *Assignment) Candidates() int {
	return len(a.candToRef)
}

// CandidateFor returns the candidate assigned to reference index ref.
func (a *Assignment) CandidateFor(ref int) (int, bool) {
	if ref < 0 || ref >= len(a.refToCand) || a.refToCand[ref] == unassigned {
		return 0, false
	}

	return a.refToCand[ref], true
}

// ReferenceFor returns the reference that consumed candidate index cand.
func (a *Assignment) ReferenceFor(cand int) (int, bool) {
	if cand < 0 || cand >= len(a.candToRef) || a.candToRef[cand] == unassigned {
		return 0, false
	}

	return a.candToRef[cand], true
}

// Links returns all correspondences ordered by reference index.
func (a *Assignment) Links() []Link {
	links := make([]Link, 0, a.matched)

	for ref, cand := range a.refToCand {
		if cand != unassigned {
			links = append(links, Link{Reference: ref, Candidate: cand})
		}
	}

	return links
}

// UnmatchedReferences returns the reference indices left without a candidate.
func (a *Assignment) UnmatchedReferences() []int {
	return unassignedIndices(a.refToCand)
}

// UnusedCandidates returns the candidate indices never consumed.
func (a *Assignment) UnusedCandidates() []int {
	return unassignedIndices(a.candToRef)
}

func unassignedIndices(mapping []int) []int {
	var out []int

	for i, v := range mapping {
		if v == unassigned {
			out = append(out, i)
		}
	}

	return out
}

// Match assigns candidates to references greedily with the given threshold.
// See Matcher.Match.
func Match(references, candidates []ClonePair, threshold float64) (*Assignment, error) {
	return Matcher{Threshold: threshold}.Match(references, candidates)
}

// Match assigns candidates to references.
//
// References are processed in input order. Each one is compared against the
// not yet consumed candidates of its own task group, in input order, and
// takes the first candidate that c-matches it. The result is greedy, not a
// maximum matching: an earlier reference may take a candidate that a later
// one would have matched as well.
//
// Pairs whose group key cannot be canonicalized are reported in a returned
// *InvalidInputError. The assignment is still complete for every other pair.
func (m Matcher) Match(references, candidates []ClonePair) (*Assignment, error) {
	grp := groupPairs(references, candidates)
	a := newAssignment(len(references), len(candidates))

	if m.Workers > 1 && len(grp.order) > 1 {
		p := pool.New().WithMaxGoroutines(m.Workers)

		for _, key := range grp.order {
			refs, cands := grp.refs[key], grp.cands[key]

			p.Go(func() {
				m.matchGroup(references, candidates, refs, cands, a)
			})
		}

		p.Wait()
	} else {
		for _, key := range grp.order {
			m.matchGroup(references, candidates, grp.refs[key], grp.cands[key], a)
		}
	}

	for _, cand := range a.refToCand {
		if cand != unassigned {
			a.matched++
		}
	}

	if grp.invalid.empty() {
		return a, nil
	}

	return a, &grp.invalid
}

// matchGroup runs the greedy scan for one task group. Groups never share
// indices, so concurrent calls write disjoint elements of a.
func (m Matcher) matchGroup(references, candidates []ClonePair, refs, cands []int, a *Assignment) {
	if len(cands) == 0 {
		return
	}

	consumed := make([]bool, len(cands))

	for _, ref := range refs {
		for j, cand := range cands {
			if consumed[j] {
				continue
			}

			if m.IsMatch(references[ref], candidates[cand]) {
				consumed[j] = true
				a.refToCand[ref] = cand
				a.candToRef[cand] = ref

				break
			}
		}
	}
}

// grouping partitions reference and candidate indices by canonical group key.
// Unresolved and invalid keys are recorded as "" and belong to no group.
type grouping struct {
	refKeys []string
	order   []string
	refs    map[string][]int
	cands   map[string][]int
	invalid InvalidInputError
}

func groupPairs(references, candidates []ClonePair) *grouping {
	grp := &grouping{
		refKeys: make([]string, len(references)),
		refs:    make(map[string][]int),
		cands:   make(map[string][]int),
	}

	for i, cp := range candidates {
		key, err := CanonicalGroup(cp.Group)
		if err != nil {
			grp.invalid.Candidates = append(grp.invalid.Candidates, i)

			continue
		}

		if key == "" {
			continue
		}

		grp.cands[key] = append(grp.cands[key], i)
	}

	for i, rp := range references {
		key, err := CanonicalGroup(rp.Group)
		if err != nil {
			grp.invalid.References = append(grp.invalid.References, i)

			continue
		}

		if key == "" {
			continue
		}

		if _, seen := grp.refs[key]; !seen {
			grp.order = append(grp.order, key)
		}

		grp.refKeys[i] = key
		grp.refs[key] = append(grp.refs[key], i)
	}

	return grp
}
