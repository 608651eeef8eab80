package cmatch

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounts_Metrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		counts                 Counts
		precision, recall, f1 float64
	}{
		{name: "perfect", counts: Counts{TP: 3}, precision: 1, recall: 1, f1: 1},
		{name: "nothing", counts: Counts{}, precision: 0, recall: 0, f1: 0},
		{name: "only_misses", counts: Counts{FN: 4}, precision: 0, recall: 0, f1: 0},
		{name: "only_false_positives", counts: Counts{FP: 2}, precision: 0, recall: 0, f1: 0},
		{name: "half_and_half", counts: Counts{TP: 1, FP: 1, FN: 1}, precision: 0.5, recall: 0.5, f1: 0.5},
		{name: "uneven", counts: Counts{TP: 3, FP: 1, FN: 2}, precision: 0.75, recall: 0.6, f1: 2 * 0.75 * 0.6 / 1.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := tt.counts.Metrics()
			assert.Equal(t, tt.counts, m.Counts)
			assert.InDelta(t, tt.precision, m.Precision, testDelta)
			assert.InDelta(t, tt.recall, m.Recall, testDelta)
			assert.InDelta(t, tt.f1, m.F1, testDelta)
		})
	}
}

func TestScore_PerfectDetection(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 0, 9, "B", 0, 9, "T1")}
	cands := []ClonePair{pair("A", 0, 8, "B", 1, 9, "T1")}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)

	m := Score(refs, cands, a)
	assert.Equal(t, Counts{TP: 1}, m.Counts)
	assert.InDelta(t, 1.0, m.Precision, testDelta)
	assert.InDelta(t, 1.0, m.Recall, testDelta)
	assert.InDelta(t, 1.0, m.F1, testDelta)
}

func TestScore_BelowThreshold(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{pair("A", 0, 9, "B", 0, 9, "T1")}
	cands := []ClonePair{pair("A", 0, 3, "B", 0, 9, "T1")}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)

	m := Score(refs, cands, a)
	assert.Equal(t, Counts{FP: 1, FN: 1}, m.Counts)
	assert.Zero(t, m.Precision)
	assert.Zero(t, m.Recall)
	assert.Zero(t, m.F1)
}

func TestScore_NoCandidates(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, "T1"),
		pair("C", 0, 9, "D", 0, 9, "T2"),
	}

	a, err := Match(refs, nil, testThreshold)
	require.NoError(t, err)

	m := Score(refs, nil, a)
	assert.Equal(t, Counts{FN: 2}, m.Counts)
	assert.Zero(t, m.F1)
}

// TestScore_CountsConserved checks TP+FN and TP+FP against the input sizes on random data.
func TestScore_CountsConserved(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(17, 2))

	for range 30 {
		refs := randomPairs(rng, rng.IntN(50))
		cands := randomPairs(rng, rng.IntN(50))

		a, err := Match(refs, cands, 0.6)
		require.NoError(t, err)

		m := Score(refs, cands, a)
		assert.Equal(t, len(refs), m.TP+m.FN)
		assert.Equal(t, len(cands), m.TP+m.FP)
		assert.GreaterOrEqual(t, m.F1, 0.0)
		assert.LessOrEqual(t, m.F1, 1.0)

		var total Counts

		for _, gm := range ScoreByGroup(refs, cands, a) {
			total = total.Add(gm.Metrics.Counts)
		}

		assert.Equal(t, m.Counts, total)
	}
}

func TestScoreByGroup(t *testing.T) {
	t.Parallel()

	refs := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, 2),
		pair("C", 0, 9, "D", 0, 9, "1"),
		pair("E", 0, 9, "F", 0, 9, nil),
	}
	cands := []ClonePair{
		pair("A", 0, 9, "B", 0, 9, "2"),
		pair("X", 0, 9, "Y", 0, 9, "1"),
		pair("X", 0, 9, "Y", 0, 9, 3),
	}

	a, err := Match(refs, cands, testThreshold)
	require.NoError(t, err)

	groups := ScoreByGroup(refs, cands, a)
	require.Len(t, groups, 4)

	assert.Equal(t, "", groups[0].Group)
	assert.Equal(t, Counts{FN: 1}, groups[0].Metrics.Counts)

	assert.Equal(t, "1", groups[1].Group)
	assert.Equal(t, Counts{FP: 1, FN: 1}, groups[1].Metrics.Counts)

	assert.Equal(t, "2", groups[2].Group)
	assert.Equal(t, Counts{TP: 1}, groups[2].Metrics.Counts)
	assert.Equal(t, 1, groups[2].References)
	assert.Equal(t, 1, groups[2].Candidates)
	assert.InDelta(t, 1.0, groups[2].Metrics.F1, testDelta)

	assert.Equal(t, "3", groups[3].Group)
	assert.Equal(t, Counts{FP: 1}, groups[3].Metrics.Counts)
}
