package cmatch

import "fmt"

// Orientation identifies how a candidate's fragments line up with a
// reference's fragments.
type Orientation int

const (
	// Direct aligns reference A with candidate A and reference B with candidate B.
	Direct Orientation = iota + 1
	// Swapped aligns reference A with candidate B and reference B with candidate A.
	Swapped
)

// String returns the orientation name.
func (o Orientation) String() string {
	switch o {
	case Direct:
		return "direct"
	case Swapped:
		return "swapped"
	default:
		return "none"
	}
}

// Alignment is a candidate's fragments reordered to face a reference's A and B.
type Alignment struct {
	Orientation Orientation
	A           Fragment
	B           Fragment
}

// Align finds the file-identifier alignment between a reference and a
// candidate. The direct orientation wins when both apply. It reports false
// when neither orientation matches files on both sides.
func Align(reference, candidate ClonePair) (Alignment, bool) {
	als, n := alignments(reference, candidate)
	if n == 0 {
		return Alignment{}, false
	}

	return als[0], true
}

// alignments returns every valid orientation, direct first. Both apply only
// when each pair has its two fragments in the same file.
func alignments(reference, candidate ClonePair) (als [2]Alignment, n int) {
	if reference.A.File == candidate.A.File && reference.B.File == candidate.B.File {
		als[n] = Alignment{Orientation: Direct, A: candidate.A, B: candidate.B}
		n++
	}

	if reference.A.File == candidate.B.File && reference.B.File == candidate.A.File {
		als[n] = Alignment{Orientation: Swapped, A: candidate.B, B: candidate.A}
		n++
	}

	return als, n
}

// PairCoverage holds the four directional coverage ratios of an aligned pair.
type PairCoverage struct {
	Orientation Orientation `json:"orientation" yaml:"orientation"`
	// ARefByCand is the share of reference A covered by the aligned candidate fragment.
	ARefByCand float64 `json:"a_ref_by_cand" yaml:"a_ref_by_cand"`
	// ACandByRef is the share of the aligned candidate fragment covered by reference A.
	ACandByRef float64 `json:"a_cand_by_ref" yaml:"a_cand_by_ref"`
	BRefByCand float64 `json:"b_ref_by_cand" yaml:"b_ref_by_cand"`
	BCandByRef float64 `json:"b_cand_by_ref" yaml:"b_cand_by_ref"`
}

// Weakest returns the smallest of the four ratios.
func (pc PairCoverage) Weakest() float64 {
	return min(pc.ARefByCand, pc.ACandByRef, pc.BRefByCand, pc.BCandByRef)
}

// Passes reports whether all four ratios reach the threshold.
func (pc PairCoverage) Passes(threshold float64) bool {
	return pc.ARefByCand >= threshold && pc.ACandByRef >= threshold &&
		pc.BRefByCand >= threshold && pc.BCandByRef >= threshold
}

// ComputePairCoverage aligns candidate to reference and computes coverage for
// both aligned fragment pairs. When both orientations apply, the one with the
// larger weakest ratio is returned. It reports false when the files do not align.
func ComputePairCoverage(reference, candidate ClonePair) (PairCoverage, bool) {
	var (
		best  PairCoverage
		found bool
	)

	als, n := alignments(reference, candidate)

	for _, al := range als[:n] {
		pc := coverageOf(reference, al)
		if !found || pc.Weakest() > best.Weakest() {
			best, found = pc, true
		}
	}

	return best, found
}

func coverageOf(reference ClonePair, al Alignment) PairCoverage {
	pc := PairCoverage{Orientation: al.Orientation}
	pc.ARefByCand, pc.ACandByRef = FragmentCoverage(reference.A, al.A)
	pc.BRefByCand, pc.BCandByRef = FragmentCoverage(reference.B, al.B)

	return pc
}

// EmptyPolicy decides whether an aligned pair of two empty fragments counts
// as covering each other.
type EmptyPolicy int

const (
	// EmptyMatches treats two empty fragments as a full match. This is what
	// published benchmark numbers were computed with.
	EmptyMatches EmptyPolicy = iota
	// EmptyNeverMatches fails the predicate whenever both sides of an aligned
	// fragment pair are empty.
	EmptyNeverMatches
)

// String returns the policy name used in configuration.
func (p EmptyPolicy) String() string {
	if p == EmptyNeverMatches {
		return "never"
	}

	return "match"
}

// ParseEmptyPolicy parses a policy name produced by EmptyPolicy.String.
func ParseEmptyPolicy(name string) (EmptyPolicy, error) {
	switch name {
	case "", "match":
		return EmptyMatches, nil
	case "never":
		return EmptyNeverMatches, nil
	default:
		return EmptyMatches, fmt.Errorf("%w: %q", ErrUnknownEmptyPolicy, name)
	}
}

// Matcher carries the parameters of the c-match predicate and the
// assignment engine. The zero value is not useful; Threshold must be set.
type Matcher struct {
	// Threshold is the minimum coverage ratio, typically 0.7.
	Threshold float64
	// EmptyPolicy controls vacuous matches between empty fragments.
	EmptyPolicy EmptyPolicy
	// Workers bounds how many task groups are matched concurrently.
	// Values below 2 match sequentially.
	Workers int
}

// IsMatch reports whether candidate c-matches reference under threshold,
// with two empty fragments counting as a match.
func IsMatch(reference, candidate ClonePair, threshold float64) bool {
	return Matcher{Threshold: threshold}.IsMatch(reference, candidate)
}

// IsMatch reports whether candidate c-matches reference: files align in an
// orientation under which all four directional coverage ratios reach the
// threshold. Swapping the candidate's fragments never changes the result.
func (m Matcher) IsMatch(reference, candidate ClonePair) bool {
	als, n := alignments(reference, candidate)

	for _, al := range als[:n] {
		if m.fragmentsMatch(reference.A, al.A) && m.fragmentsMatch(reference.B, al.B) {
			return true
		}
	}

	return false
}

func (m Matcher) fragmentsMatch(ref, cand Fragment) bool {
	if m.EmptyPolicy == EmptyNeverMatches && ref.Empty() && cand.Empty() {
		return false
	}

	refByCand, candByRef := FragmentCoverage(ref, cand)

	return refByCand >= m.Threshold && candByRef >= m.Threshold
}
