package cmatch

// LineCount returns the number of lines in the inclusive range [start, end].
// Negative bounds and inverted ranges count as zero lines.
func LineCount(start, end int) int {
	if start < 0 || end < 0 || end < start {
		return 0
	}

	return end - start + 1
}

// Coverage computes how much of the reference range is covered by the test
// range and how much of the test range is covered by the reference range.
//
// Two empty ranges cover each other fully; an empty range and a non-empty
// one do not cover each other at all.
func Coverage(refStart, refEnd, testStart, testEnd int) (refByTest, testByRef float64) {
	refLines := LineCount(refStart, refEnd)
	testLines := LineCount(testStart, testEnd)

	if refLines == 0 && testLines == 0 {
		return 1, 1
	}

	if refLines == 0 || testLines == 0 {
		return 0, 0
	}

	overlap := LineCount(max(refStart, testStart), min(refEnd, testEnd))

	return float64(overlap) / float64(refLines), float64(overlap) / float64(testLines)
}

// FragmentCoverage is Coverage over two fragments, ignoring file identifiers.
func FragmentCoverage(ref, test Fragment) (refByTest, testByRef float64) {
	return Coverage(ref.Start, ref.End, test.Start, test.End)
}
