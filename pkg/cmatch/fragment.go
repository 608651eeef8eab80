// Package cmatch matches detector-reported clone pairs against a reference
// benchmark and scores the outcome.
//
// Matching is purely geometric: two fragments correspond when they name the
// same file and their inclusive, 0-indexed line ranges cover each other by at
// least a threshold ratio in both directions ("c-match"). Candidates are
// restricted to the reference's task group and assigned greedily in input
// order, one candidate per reference at most.
//
// The package performs no I/O and keeps no state between calls.
package cmatch

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// ErrUnsupportedGroup is returned when a group key cannot be reduced to a
// canonical string.
var ErrUnsupportedGroup = errors.New("unsupported group key")

// Fragment is a file identifier plus an inclusive, 0-indexed line range.
// A fragment with a negative bound or End < Start is empty.
type Fragment struct {
	File  string `json:"file"  yaml:"file"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end"   yaml:"end"`
}

// Lines returns the number of lines the fragment spans.
func (f Fragment) Lines() int {
	return LineCount(f.Start, f.End)
}

// Empty reports whether the fragment spans no lines.
func (f Fragment) Empty() bool {
	return f.Lines() == 0
}

// String formats the fragment as file:start-end.
func (f Fragment) String() string {
	return f.File + ":" + strconv.Itoa(f.Start) + "-" + strconv.Itoa(f.End)
}

// ClonePair is an unordered association of two fragments plus the task group
// it belongs to. Group is compared through CanonicalGroup; nil means the
// group could not be resolved and the pair is never compared.
type ClonePair struct {
	A     Fragment `json:"a"               yaml:"a"`
	B     Fragment `json:"b"               yaml:"b"`
	Group any      `json:"group,omitempty" yaml:"group,omitempty"`
}

// CanonicalGroup reduces a group key to the string form used for candidate
// restriction, so that a task id loaded as an integer by one loader and as a
// string by another still lands in the same group. Named types are reduced by
// their underlying kind; other types fall back to fmt.Stringer.
//
// An empty result means the group is unresolved, as does a nil pointer. Keys
// of any other type, and floats that are not whole numbers, return
// ErrUnsupportedGroup.
func CanonicalGroup(key any) (string, error) {
	if key == nil {
		return "", nil
	}

	v := reflect.ValueOf(key)

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return "", nil
		}
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return canonicalFloat(v.Float())
	}

	if s, ok := key.(fmt.Stringer); ok {
		return s.String(), nil
	}

	return "", fmt.Errorf("%w: %T", ErrUnsupportedGroup, key)
}

func canonicalFloat(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedGroup, v)
	}

	return strconv.FormatFloat(v, 'f', 0, 64), nil
}
