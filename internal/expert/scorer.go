package expert

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/agit/internal/change"
)

// #region scorer

// Scorer computes independent heuristic sub-scores from a change summary.
type Scorer struct {
	config Config
}

// NewScorer creates a Scorer.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Score returns quality, complexity and cohesion, in that order. It never fails:
// inputs an expert cannot judge degrade to the neutral score and say so in the rationale.
func (s *Scorer) Score(sum change.Summary) []SubScore {
	return []SubScore{
		s.quality(sum),
		s.complexity(sum),
		s.cohesion(sum),
	}
}

// #endregion scorer

// #region quality

func (s *Scorer) quality(sum change.Summary) SubScore {
	v := s.config.QualityBase
	var notes []string
	if sum.HasTests {
		v += s.config.TestsBonus
		notes = append(notes, "includes tests")
	}
	if sum.HasDocs {
		v += s.config.DocsBonus
		notes = append(notes, "includes docs")
	}
	if sum.HasTODO {
		v -= s.config.TODOPenalty
		notes = append(notes, "leaves TODO markers")
	}
	if len(notes) == 0 {
		notes = append(notes, "no tests or docs")
	}
	v = clamp(v)
	return SubScore{
		Name:      Quality,
		Value:     v,
		Rationale: fmt.Sprintf("quality %.2f: %s", v, strings.Join(notes, ", ")),
	}
}

// #endregion quality

// #region complexity

// complexity is bell-shaped over the file count: flat at 1 inside the band,
// linear below it and strictly decreasing above it.
func (s *Scorer) complexity(sum change.Summary) SubScore {
	n := sum.FileCount
	if n == 0 {
		return SubScore{
			Name:      Complexity,
			Value:     s.config.Neutral,
			Rationale: fmt.Sprintf("complexity %.2f: no files, neutral", s.config.Neutral),
		}
	}

	var v float64
	var note string
	switch {
	case n < s.config.BandLow:
		v = 1.0 - s.config.BelowBandPer*float64(s.config.BandLow-n)
		note = "smaller than the optimal band"
	case n <= s.config.BandHigh:
		v = 1.0
		note = "within the optimal band"
	default:
		span := float64(s.config.BandHigh)
		if span <= 0 {
			span = 1
		}
		v = 1.0 / (1.0 + float64(n-s.config.BandHigh)/span)
		note = "larger than the optimal band"
	}
	v = clamp(v)
	return SubScore{
		Name:      Complexity,
		Value:     v,
		Rationale: fmt.Sprintf("complexity %.2f: %d files, %s", v, n, note),
	}
}

// #endregion complexity

// #region cohesion

// cohesion rewards few directories per file and a single shared extension.
func (s *Scorer) cohesion(sum change.Summary) SubScore {
	files := sum.FileCount
	if files == 0 {
		return SubScore{
			Name:      Cohesion,
			Value:     s.config.Neutral,
			Rationale: fmt.Sprintf("cohesion %.2f: no files, neutral", s.config.Neutral),
		}
	}

	dirs := sum.DirectoryCount()
	if dirs == 0 {
		dirs = 1
	}
	spread := clamp(1.0 - float64(dirs-1)/float64(files))

	var bonus float64
	note := "mixed extensions"
	if sum.SharedExtension() {
		bonus = 1
		note = "shared extension"
	}
	mix := s.config.SharedExtMix
	v := clamp((1-mix)*spread + mix*bonus)
	return SubScore{
		Name:      Cohesion,
		Value:     v,
		Rationale: fmt.Sprintf("cohesion %.2f: %d files across %d directories, %s", v, files, dirs, note),
	}
}

// #endregion cohesion

// #region helpers

// clamp restricts v to [0, 1].
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
