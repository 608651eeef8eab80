package cmatch

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrInvalidInput is matched by every *InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownEmptyPolicy is returned by ParseEmptyPolicy.
	ErrUnknownEmptyPolicy = errors.New("unknown empty-fragment policy")
)

// maxListedIndices caps how many offending indices Error() spells out.
const maxListedIndices = 10

// InvalidInputError lists the pairs whose group key could not be
// canonicalized. Offending references were left unmatched and offending
// candidates were never offered; everything else was matched normally.
type InvalidInputError struct {
	References []int
	Candidates []int
}

// Error implements error.
func (e *InvalidInputError) Error() string {
	var parts []string

	if len(e.References) > 0 {
		parts = append(parts, "reference pairs "+formatIndices(e.References))
	}

	if len(e.Candidates) > 0 {
		parts = append(parts, "candidate pairs "+formatIndices(e.Candidates))
	}

	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, ErrUnsupportedGroup, strings.Join(parts, ", "))
}

// Is makes errors.Is(err, ErrInvalidInput) hold.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *InvalidInputError) empty() bool {
	return len(e.References) == 0 && len(e.Candidates) == 0
}

func formatIndices(indices []int) string {
	shown := indices
	if len(shown) > maxListedIndices {
		shown = shown[:maxListedIndices]
	}

	strs := make([]string, len(shown))
	for i, idx := range shown {
		strs[i] = fmt.Sprint(idx)
	}

	out := "[" + strings.Join(strs, " ")
	if len(indices) > len(shown) {
		out += fmt.Sprintf(" ... +%d", len(indices)-len(shown))
	}

	return out + "]"
}
