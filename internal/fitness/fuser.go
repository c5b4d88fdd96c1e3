package fitness

import (
	"sort"
	"strings"

	"github.com/danielpatrickdp/agit/internal/expert"
)

// #region fuser

// Fuser combines expert sub-scores into one fitness score.
type Fuser struct {
	weights Weights
}

// NewFuser creates a Fuser. Weights are used as given; normalization belongs to
// configuration loading.
func NewFuser(weights Weights) *Fuser {
	return &Fuser{weights: weights}
}

// Weights returns the weights the fuser applies.
func (f *Fuser) Weights() Weights {
	return f.weights
}

// Fuse computes the weighted sum and the reasoning trace. The trace lists rationales
// by descending weighted contribution; equal contributions keep scorer order.
func (f *Fuser) Fuse(scores []expert.SubScore) Result {
	contribs := make([]Contribution, len(scores))
	var total float64
	for i, s := range scores {
		w := f.weights.For(s.Name)
		contribs[i] = Contribution{SubScore: s, Weight: w, Weighted: w * s.Value}
		total += contribs[i].Weighted
	}

	ranked := Ranked(contribs)
	parts := make([]string, 0, len(ranked))
	for _, c := range ranked {
		if c.Rationale != "" {
			parts = append(parts, c.Rationale)
		}
	}

	return Result{
		Score:     clamp(total),
		Scores:    contribs,
		Reasoning: strings.Join(parts, "; "),
	}
}

// #endregion fuser

// #region helpers

// Ranked returns a copy of contribs sorted by descending weighted contribution.
func Ranked(contribs []Contribution) []Contribution {
	out := make([]Contribution, len(contribs))
	copy(out, contribs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weighted > out[j].Weighted
	})
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
