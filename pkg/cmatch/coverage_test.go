package cmatch

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testDelta = 1e-9

func TestLineCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int
		expected   int
	}{
		{name: "single_line", start: 3, end: 3, expected: 1},
		{name: "ten_lines", start: 0, end: 9, expected: 10},
		{name: "inverted", start: 5, end: 4, expected: 0},
		{name: "negative_start", start: -1, end: 4, expected: 0},
		{name: "negative_end", start: 0, end: -1, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, LineCount(tt.start, tt.end))
		})
	}
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                       string
		refStart, refEnd           int
		testStart, testEnd         int
		wantRefByTest, wantTestRef float64
	}{
		{name: "identical", refStart: 0, refEnd: 9, testStart: 0, testEnd: 9, wantRefByTest: 1, wantTestRef: 1},
		{name: "shorter_test", refStart: 0, refEnd: 9, testStart: 0, testEnd: 8, wantRefByTest: 0.9, wantTestRef: 1},
		{name: "shifted_test", refStart: 0, refEnd: 9, testStart: 1, testEnd: 9, wantRefByTest: 0.9, wantTestRef: 1},
		{name: "partial_overlap", refStart: 0, refEnd: 9, testStart: 5, testEnd: 14, wantRefByTest: 0.5, wantTestRef: 0.5},
		{name: "disjoint", refStart: 0, refEnd: 9, testStart: 20, testEnd: 29, wantRefByTest: 0, wantTestRef: 0},
		{name: "touching_single_line", refStart: 0, refEnd: 9, testStart: 9, testEnd: 18, wantRefByTest: 0.1, wantTestRef: 0.1},
		{name: "both_empty", refStart: 5, refEnd: 4, testStart: -1, testEnd: -1, wantRefByTest: 1, wantTestRef: 1},
		{name: "ref_empty", refStart: 5, refEnd: 4, testStart: 0, testEnd: 9, wantRefByTest: 0, wantTestRef: 0},
		{name: "test_empty", refStart: 0, refEnd: 9, testStart: -3, testEnd: 2, wantRefByTest: 0, wantTestRef: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			refByTest, testByRef := Coverage(tt.refStart, tt.refEnd, tt.testStart, tt.testEnd)
			assert.InDelta(t, tt.wantRefByTest, refByTest, testDelta)
			assert.InDelta(t, tt.wantTestRef, testByRef, testDelta)
		})
	}
}

// TestCoverage_SwapSymmetry verifies swapping the inputs swaps the outputs.
func TestCoverage_SwapSymmetry(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))

	for range 2000 {
		as, ae := rng.IntN(60)-5, rng.IntN(60)-5
		bs, be := rng.IntN(60)-5, rng.IntN(60)-5

		x, y := Coverage(as, ae, bs, be)
		y2, x2 := Coverage(bs, be, as, ae)

		assert.InDelta(t, x, x2, testDelta)
		assert.InDelta(t, y, y2, testDelta)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.LessOrEqual(t, x, 1.0)
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y, 1.0)
	}
}

// TestCoverage_Containment verifies a contained fragment is fully covered by its container.
func TestCoverage_Containment(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 5))

	for range 2000 {
		outerStart := rng.IntN(50)
		outerEnd := outerStart + rng.IntN(50)
		innerStart := outerStart + rng.IntN(outerEnd-outerStart+1)
		innerEnd := innerStart + rng.IntN(outerEnd-innerStart+1)

		outerByInner, innerByOuter := Coverage(outerStart, outerEnd, innerStart, innerEnd)

		assert.InDelta(t, 1.0, innerByOuter, testDelta)
		assert.InDelta(t,
			float64(LineCount(innerStart, innerEnd))/float64(LineCount(outerStart, outerEnd)),
			outerByInner, testDelta)
	}
}

func TestFragment(t *testing.T) {
	t.Parallel()

	f := Fragment{File: "a.py", Start: 2, End: 6}
	assert.Equal(t, 5, f.Lines())
	assert.False(t, f.Empty())
	assert.Equal(t, "a.py:2-6", f.String())

	assert.True(t, Fragment{File: "a.py", Start: 4, End: 3}.Empty())
}
