package evaluate

import (
	"time"

	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// Result is the outcome of one evaluation.
type Result struct {
	Benchmark   string  `json:"benchmark,omitempty"  yaml:"benchmark,omitempty"`
	Detections  string  `json:"detections,omitempty" yaml:"detections,omitempty"`
	Threshold   float64 `json:"threshold"            yaml:"threshold"`
	EmptyPolicy string  `json:"empty_policy"         yaml:"empty_policy"`

	References          int `json:"references"           yaml:"references"`
	Candidates          int `json:"candidates"           yaml:"candidates"`
	Matched             int `json:"matched"              yaml:"matched"`
	DroppedRows         int `json:"dropped_rows"         yaml:"dropped_rows"`
	UngroupedCandidates int `json:"ungrouped_candidates" yaml:"ungrouped_candidates"`

	Metrics cmatch.Metrics        `json:"metrics"          yaml:"metrics"`
	Groups  []cmatch.GroupMetrics `json:"groups"           yaml:"groups"`
	Links   []cmatch.Link         `json:"links,omitempty"  yaml:"links,omitempty"`
	Misses  []MissDetail          `json:"misses,omitempty" yaml:"misses,omitempty"`

	InvalidReferences []int `json:"invalid_references,omitempty" yaml:"invalid_references,omitempty"`
	InvalidCandidates []int `json:"invalid_candidates,omitempty" yaml:"invalid_candidates,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns" yaml:"elapsed"`
}

// MissDetail is a cmatch.Miss with the pairs it refers to.
type MissDetail struct {
	cmatch.Miss `yaml:",inline"`

	Pair    cmatch.ClonePair  `json:"pair"              yaml:"pair"`
	Closest *cmatch.ClonePair `json:"closest,omitempty" yaml:"closest,omitempty"`
}

// Valid reports whether every input pair had a usable group key.
func (r *Result) Valid() bool {
	return len(r.InvalidReferences) == 0 && len(r.InvalidCandidates) == 0
}

func describeMisses(references, candidates []cmatch.ClonePair, misses []cmatch.Miss) []MissDetail {
	if len(misses) == 0 {
		return nil
	}

	out := make([]MissDetail, len(misses))

	for i, miss := range misses {
		out[i] = MissDetail{Miss: miss, Pair: references[miss.Reference]}

		if miss.Candidate >= 0 && miss.Candidate < len(candidates) {
			closest := candidates[miss.Candidate]
			out[i].Closest = &closest
		}
	}

	return out
}
