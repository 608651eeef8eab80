package cmatch

// Reason says why a reference pair ended up unmatched.
type Reason string

// Miss reasons, from the earliest point of failure. ReasonEmptyFragment
// marks a candidate whose coverage passes but which pairs two empty
// fragments under EmptyNeverMatches.
const (
	ReasonInvalidGroup   Reason = "invalid_group"
	ReasonNoCandidates   Reason = "no_candidates"
	ReasonFileMismatch   Reason = "file_mismatch"
	ReasonBelowThreshold Reason = "below_threshold"
	ReasonEmptyFragment  Reason = "empty_fragment"
	ReasonConsumed       Reason = "consumed"
)

// rank orders the reasons a candidate can give, closest last.
func (r Reason) rank() int {
	switch r {
	case ReasonBelowThreshold:
		return 1
	case ReasonEmptyFragment:
		return 2
	default:
		return 0
	}
}

// Miss describes one unmatched reference pair and the closest candidate
// from its group. Candidate is -1 when no candidate aligned by file and
// ClaimedBy is -1 unless the reason is ReasonConsumed.
type Miss struct {
	Reference int     `json:"reference"  yaml:"reference"`
	Reason    Reason  `json:"reason"     yaml:"reason"`
	Candidate int     `json:"candidate"  yaml:"candidate"`
	Weakest   float64 `json:"weakest"    yaml:"weakest"`
	ClaimedBy int     `json:"claimed_by" yaml:"claimed_by"`
}

// Explain reports, for every reference left unmatched by a, the reason it
// failed. Candidates consumed by an earlier reference are considered too, so
// a reference that lost a candidate to the greedy order is reported as
// ReasonConsumed rather than as a plain miss.
func (m Matcher) Explain(references, candidates []ClonePair, a *Assignment) []Miss {
	grp := groupPairs(references, candidates)

	invalid := make(map[int]bool, len(grp.invalid.References))
	for _, idx := range grp.invalid.References {
		invalid[idx] = true
	}

	var misses []Miss

	for _, ref := range a.UnmatchedReferences() {
		if ref >= len(references) {
			break
		}

		misses = append(misses, m.explainOne(references, candidates, grp, a, ref, invalid[ref]))
	}

	return misses
}

func (m Matcher) explainOne(
	references, candidates []ClonePair,
	grp *grouping,
	a *Assignment,
	ref int,
	invalid bool,
) Miss {
	miss := Miss{Reference: ref, Candidate: unassigned, ClaimedBy: unassigned}

	if invalid {
		miss.Reason = ReasonInvalidGroup

		return miss
	}

	key := grp.refKeys[ref]
	cands := grp.cands[key]

	if key == "" || len(cands) == 0 {
		miss.Reason = ReasonNoCandidates

		return miss
	}

	miss.Reason = ReasonFileMismatch

	for _, cand := range cands {
		pc, ok := ComputePairCoverage(references[ref], candidates[cand])
		if !ok {
			continue
		}

		if m.IsMatch(references[ref], candidates[cand]) {
			// A matching candidate exists, so it was taken by someone else.
			owner, claimed := a.ReferenceFor(cand)
			if !claimed {
				owner = unassigned
			}

			return Miss{
				Reference: ref,
				Reason:    ReasonConsumed,
				Candidate: cand,
				Weakest:   pc.Weakest(),
				ClaimedBy: owner,
			}
		}

		reason := ReasonBelowThreshold
		if pc.Passes(m.Threshold) {
			reason = ReasonEmptyFragment
		}

		if reason.rank() > miss.Reason.rank() ||
			(reason == miss.Reason && pc.Weakest() > miss.Weakest) {
			miss.Reason = reason
			miss.Candidate = cand
			miss.Weakest = pc.Weakest()
		}
	}

	return miss
}
