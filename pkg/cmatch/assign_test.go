package cmatch

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_SingleMatch(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 0, 9, "B", 0, 9, "T1")}
	cands := []ClonePair{pair("A", 0, 8, "B", 1, 9, "T1")}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, a.References())
	assert.Equal(t, 1, a.Candidates())
	assert.Equal(t, []Link{{Reference: 0, Candidate: 0}}, a.Links())
	assert.Empty(t, a.UnmatchedReferences())
	assert.Empty(t, a.UnusedCandidates())

	cand, ok := a.CandidateFor(0)
	require.True(t, ok)
	assert.Equal(t, 0, cand)

	ref, ok := a.ReferenceFor(0)
	require.True(t, ok)
	assert.Equal(t, 0, ref)

	_, ok = a.CandidateFor(5)
	assert.False(t, ok)
}

func TestMatch_GroupRestriction(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 0, 9, "B", 0, 9, "T1")}
	cands := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, "T2"),
		pair("A", 0, 9, "B", 0, 9, nil),
	}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)

	assert.Equal(t, 0, a.Len())
	assert.Equal(t, []int{0}, a.UnmatchedReferences())
	assert.Equal(t, []int{0, 1}, a.UnusedCandidates())
}

// TestMatch_GroupKeyTypes verifies an integer task id on one side still meets a string one.
func TestMatch_GroupKeyTypes(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 0, 9, "B", 0, 9, int64(5719039502450688))}
	cands := []ClonePair{pair("A", 0, 9, "B", 0, 9, "5719039502450688")}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Len())
}

// TestMatch_NamedGroupKeys verifies named key types from different loaders still meet.
func TestMatch_NamedGroupKeys(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 0, 9, "B", 0, 9, taskNum(17))}
	cands := []ClonePair{pair("A", 0, 9, "B", 0, 9, taskName("17"))}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Len())
}

// TestMatch_GreedyFirstReferenceWins verifies a shared candidate goes to the earlier reference.
func TestMatch_GreedyFirstReferenceWins(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, "T1"),
		pair("A", 0, 8, "B", 0, 8, "T1"),
	}
	cands := []ClonePair{pair("A", 0, 8, "B", 0, 9, "T1")}

	require.True(t, IsMatch(refs[0], cands[0], testThreshold))
	require.True(t, IsMatch(refs[1], cands[0], testThreshold))

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)
	assert.Equal(t, []Link{{Reference: 0, Candidate: 0}}, a.Links())
	assert.Equal(t, []int{1}, a.UnmatchedReferences())

	// Reversing the reference order hands the candidate to the other reference.
	reversed := []ClonePair{refs[1], refs[0]}

	b, err := Match(reversed, cands, testThreshold)
	require.NoError(t, err)
	assert.Equal(t, []Link{{Reference: 0, Candidate: 0}}, b.Links())
	assert.Equal(t, []int{1}, b.UnmatchedReferences())
}

// TestMatch_GreedyIsNotOptimal verifies the first matching candidate is taken even when
// a later reference then goes unmatched.
func TestMatch_GreedyIsNotOptimal(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, "T1"),
		pair("A", 0, 5, "B", 0, 5, "T1"),
	}
	cands := []ClonePair{
		pair("A", 0, 7, "B", 0, 7, "T1"), // matches both references
		pair("A", 0, 9, "B", 0, 9, "T1"), // matches only the first
	}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)
	assert.Equal(t, []Link{{Reference: 0, Candidate: 0}}, a.Links())
	assert.Equal(t, []int{1}, a.UnusedCandidates())
}

func TestMatch_FirstCandidateInOrder(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 0, 9, "B", 0, 9, "T1")}
	cands := []ClonePair{
		pair("A", 0, 3, "B", 0, 9, "T1"),
		pair("A", 0, 8, "B", 0, 9, "T1"),
		pair("A", 0, 9, "B", 0, 9, "T1"),
	}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)
	assert.Equal(t, []Link{{Reference: 0, Candidate: 1}}, a.Links())
}

func TestMatch_InvalidGroup(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, []int{1}),
		pair("C", 0, 9, "D", 0, 9, "T1"),
	}
	cands := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, 0.5),
		pair("C", 0, 9, "D", 0, 9, "T1"),
	}

	a, err := Match(refs, cands, testThreshold)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []int{0}, invalid.References)
	assert.Equal(t, []int{0}, invalid.Candidates)
	assert.Contains(t, err.Error(), "reference pairs [0]")

	require.NotNil(t, a)
	assert.Equal(t, []Link{{Reference: 1, Candidate: 1}}, a.Links())
	assert.Equal(t, []int{0}, a.UnmatchedReferences())
	assert.Equal(t, []int{0}, a.UnusedCandidates())
}

func TestMatch_Empty(t *testing.T) {
	t.Parallel()

	a, err := Match(nil, nil, testThreshold)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.Links())
}

// TestMatch_OneToOne verifies no candidate or reference is ever used twice, for random inputs.
func TestMatch_OneToOne(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(9, 9))

	for round := range 50 {
		refs := randomPairs(rng, 1+rng.IntN(60))
		cands := randomPairs(rng, rng.IntN(80))

		a, err := Match(refs, cands, 0.5)
		require.NoError(t, err)

		seenCand := make(map[int]bool)

		for _, link := range a.Links() {
			assert.False(t, seenCand[link.Candidate], "round %d: candidate %d reused", round, link.Candidate)
			seenCand[link.Candidate] = true

			back, ok := a.ReferenceFor(link.Candidate)
			require.True(t, ok)
			assert.Equal(t, link.Reference, back)
			assert.True(t, IsMatch(refs[link.Reference], cands[link.Candidate], 0.5))
			assert.Equal(t, refs[link.Reference].Group, cands[link.Candidate].Group)
		}

		assert.Len(t, a.Links(), a.Len())
		assert.Len(t, a.UnmatchedReferences(), len(refs)-a.Len())
		assert.Len(t, a.UnusedCandidates(), len(cands)-a.Len())
	}
}

// TestMatch_WorkersSameResult verifies parallel group matching reproduces the sequential assignment.
func TestMatch_WorkersSameResult(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(21, 4))
	refs := randomPairs(rng, 400)
	cands := randomPairs(rng, 500)

	seq, err := Matcher{Threshold: 0.5}.Match(refs, cands)
	require.NoError(t, err)

	par, err := Matcher{Threshold: 0.5, Workers: 4}.Match(refs, cands)
	require.NoError(t, err)

	assert.Equal(t, seq.Links(), par.Links())
	assert.Equal(t, seq.Len(), par.Len())
}

// TestMatch_Idempotent verifies repeated runs over the same input agree.
func TestMatch_Idempotent(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(5, 8))
	refs := randomPairs(rng, 100)
	cands := randomPairs(rng, 100)

	first, err := Match(refs, cands, 0.5)
	require.NoError(t, err)

	second, err := Match(refs, cands, 0.5)
	require.NoError(t, err)

	assert.Equal(t, first.Links(), second.Links())
}

func randomPairs(rng *rand.Rand, n int) []ClonePair {
	files := []string{"a.py", "b.py", "c.py", "d.py"}
	out := make([]ClonePair, n)

	for i := range out {
		cp := randomPair(rng, files)
		cp.Group = "T" + strconv.Itoa(rng.IntN(5))
		out[i] = cp
	}

	return out
}
