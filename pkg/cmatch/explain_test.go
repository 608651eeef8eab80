package cmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, "T1"),    // 0: matched
		pair("A", 0, 8, "B", 0, 8, "T1"),    // 1: its candidate went to 0
		pair("C", 0, 9, "D", 0, 9, "T2"),    // 2: closest candidate too short
		pair("E", 0, 9, "F", 0, 9, "T2"),    // 3: nothing in E/F
		pair("G", 0, 9, "H", 0, 9, "T9"),    // 4: group without candidates
		pair("G", 0, 9, "H", 0, 9, []int{}), // 5: unsupported key
	}
	cands := []ClonePair{
		pair("A", 0, 8, "B", 0, 9, "T1"),
		pair("C", 0, 2, "D", 0, 9, "T2"),
		pair("D", 0, 9, "C", 0, 5, "T2"),
	}

	m := Matcher{Threshold: testThreshold}

	a, err := m.Match(refs, cands)
	require.ErrorIs(t, err, ErrInvalidInput)

	misses := m.Explain(refs, cands, a)
	require.Len(t, misses, 5)

	byRef := make(map[int]Miss, len(misses))
	for _, miss := range misses {
		byRef[miss.Reference] = miss
	}

	assert.Equal(t, Miss{Reference: 1, Reason: ReasonConsumed, Candidate: 0, Weakest: 0.9, ClaimedBy: 0},
		roundWeakest(byRef[1]))

	below := byRef[2]
	assert.Equal(t, ReasonBelowThreshold, below.Reason)
	assert.Equal(t, 2, below.Candidate)
	assert.InDelta(t, 0.6, below.Weakest, testDelta)
	assert.Equal(t, unassigned, below.ClaimedBy)

	assert.Equal(t, ReasonFileMismatch, byRef[3].Reason)
	assert.Equal(t, unassigned, byRef[3].Candidate)

	assert.Equal(t, ReasonNoCandidates, byRef[4].Reason)
	assert.Equal(t, ReasonInvalidGroup, byRef[5].Reason)
}

// TestExplain_EmptyFragment verifies a candidate rejected only by the empty
// policy is reported with its own reason, not as below the threshold.
func TestExplain_EmptyFragment(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 5, 4, "B", 0, 9, "T1")}
	cands := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, "T1"),
		pair("A", -1, -1, "B", 0, 9, "T1"),
	}

	m := Matcher{Threshold: testThreshold, EmptyPolicy: EmptyNeverMatches}

	a, err := m.Match(refs, cands)
	require.NoError(t, err)
	require.Equal(t, 0, a.Len())

	misses := m.Explain(refs, cands, a)
	require.Len(t, misses, 1)
	assert.Equal(t, Miss{Reference: 0, Reason: ReasonEmptyFragment, Candidate: 1, Weakest: 1, ClaimedBy: unassigned}, misses[0])

	// Under the default policy the same pair matches.
	b, err := Matcher{Threshold: testThreshold}.Match(refs, cands)
	require.NoError(t, err)
	assert.Equal(t, []Link{{Reference: 0, Candidate: 1}}, b.Links())
}

func TestExplain_AllMatched(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 0, 9, "B", 0, 9, "T1")}
	m := Matcher{Threshold: testThreshold}

	a, err := m.Match(refs, refs)
	require.NoError(t, err)
	assert.Empty(t, m.Explain(refs, refs, a))
}

func roundWeakest(m Miss) Miss {
	m.Weakest = float64(int(m.Weakest*1000+0.5)) / 1000

	return m
}
