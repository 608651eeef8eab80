package cmatch

import (
	"cmp"
	"slices"
)

// Counts holds the raw confusion counts of an evaluation.
type Counts struct {
	TP int `json:"tp" yaml:"tp"`
	FP int `json:"fp" yaml:"fp"`
	FN int `json:"fn" yaml:"fn"`
}

// Add sums two sets of counts. Per-group counts merge in any order.
func (c Counts) Add(other Counts) Counts {
	return Counts{
		TP: c.TP + other.TP,
		FP: c.FP + other.FP,
		FN: c.FN + other.FN,
	}
}

// Metrics derives precision, recall and F1 from the counts.
// Every ratio with a zero denominator is 0.
func (c Counts) Metrics() Metrics {
	m := Metrics{Counts: c}

	if c.TP+c.FP > 0 {
		m.Precision = float64(c.TP) / float64(c.TP+c.FP)
	}

	if c.TP+c.FN > 0 {
		m.Recall = float64(c.TP) / float64(c.TP+c.FN)
	}

	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	return m
}

// Metrics is the scored outcome of an evaluation.
type Metrics struct {
	Counts `yaml:",inline"`

	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall"    yaml:"recall"`
	F1        float64 `json:"f1"        yaml:"f1"`
}

// Score turns an assignment into TP/FP/FN counts and ratios.
// TP is the number of matched references, FN the unmatched references and
// FP the candidates never consumed.
func Score(references, candidates []ClonePair, a *Assignment) Metrics {
	matched := a.Len()

	return Counts{
		TP: matched,
		FP: len(candidates) - matched,
		FN: len(references) - matched,
	}.Metrics()
}

// GroupMetrics is the score restricted to one task group.
type GroupMetrics struct {
	Group      string  `json:"group"      yaml:"group"`
	References int     `json:"references" yaml:"references"`
	Candidates int     `json:"candidates" yaml:"candidates"`
	Metrics    Metrics `json:"metrics"    yaml:"metrics"`
}

// ScoreByGroup breaks the score down per canonical group key, sorted by key.
// Pairs with an unresolved or invalid key are reported under the group "".
// The counts of all groups add up to Score.
func ScoreByGroup(references, candidates []ClonePair, a *Assignment) []GroupMetrics {
	byKey := make(map[string]*GroupMetrics)

	get := func(key string) *GroupMetrics {
		gm, ok := byKey[key]
		if !ok {
			gm = &GroupMetrics{Group: key}
			byKey[key] = gm
		}

		return gm
	}

	for i, rp := range references {
		gm := get(groupLabel(rp.Group))
		gm.References++

		if _, ok := a.CandidateFor(i); ok {
			gm.Metrics.TP++
		} else {
			gm.Metrics.FN++
		}
	}

	for i, cp := range candidates {
		gm := get(groupLabel(cp.Group))
		gm.Candidates++

		if _, ok := a.ReferenceFor(i); !ok {
			gm.Metrics.FP++
		}
	}

	out := make([]GroupMetrics, 0, len(byKey))

	for _, gm := range byKey {
		gm.Metrics = gm.Metrics.Counts.Metrics()
		out = append(out, *gm)
	}

	slices.SortFunc(out, func(x, y GroupMetrics) int {
		return cmp.Compare(x.Group, y.Group)
	})

	return out
}

// groupLabel is CanonicalGroup with invalid keys folded into "".
func groupLabel(key any) string {
	label, err := CanonicalGroup(key)
	if err != nil {
		return ""
	}

	return label
}
