package fitness

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/agit/internal/expert"
)

// ErrInvalidWeights is returned for negative or all-zero weights.
var ErrInvalidWeights = errors.New("invalid expert weights")

const sumTolerance = 1e-9

// #region weights
// Weights maps expert names to their share of the fused score.
type Weights struct {
	Quality    float64 `toml:"quality" json:"quality"`
	Complexity float64 `toml:"complexity" json:"complexity"`
	Cohesion   float64 `toml:"cohesion" json:"cohesion"`
}

// DefaultWeights returns the default expert weighting.
func DefaultWeights() Weights {
	return Weights{Quality: 0.4, Complexity: 0.3, Cohesion: 0.3}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Quality + w.Complexity + w.Cohesion
}

// Validate rejects negative weights and an all-zero set.
func (w Weights) Validate() error {
	if w.Quality < 0 || w.Complexity < 0 || w.Cohesion < 0 {
		return fmt.Errorf("%w: negative weight in %+v", ErrInvalidWeights, w)
	}
	if w.Sum() == 0 {
		return fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	return nil
}

// Normalized returns the weights scaled to sum to 1, and whether scaling was needed.
// Callers normalize once at configuration load, never per evaluation.
func (w Weights) Normalized() (Weights, bool) {
	sum := w.Sum()
	if sum == 0 || math.Abs(sum-1) < sumTolerance {
		return w, false
	}
	return Weights{
		Quality:    w.Quality / sum,
		Complexity: w.Complexity / sum,
		Cohesion:   w.Cohesion / sum,
	}, true
}

// For returns the weight of the named expert, 0 for unknown names.
func (w Weights) For(name string) float64 {
	switch name {
	case expert.Quality:
		return w.Quality
	case expert.Complexity:
		return w.Complexity
	case expert.Cohesion:
		return w.Cohesion
	}
	return 0
}

// #endregion weights

// #region result
// Contribution is one sub-score with its weighted share of the fused score.
type Contribution struct {
	expert.SubScore
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// Result is the fused fitness of a change.
type Result struct {
	Score     float64        `json:"score"`  // [0, 1]
	Scores    []Contribution `json:"scores"` // in scorer order
	Reasoning string         `json:"reasoning"`
}

// #endregion result
