package topology

import (
	"github.com/danielpatrickdp/agit/internal/change"
)

// #region config

// Config holds the bucket boundaries for κ and σ and the drift band for δ.
// Each threshold list has MaxKappa entries; a value's bucket is the number of
// thresholds it reaches, which keeps every quantizer monotonic.
type Config struct {
	LineThresholds []int
	FileThresholds []int
	DirThresholds  []int

	NoTestsRisk      int
	BreakingRisk     int
	LargeChangeRisk  int
	LargeChangeLines int
	TODORisk         int
	ManifestRisk     int

	DriftEpsilon   float64
	GhostThreshold float64 // below this, δ is critical
	Baseline       float64 // drift baseline when history is empty
}

// DefaultConfig returns default calibration for the given policy thresholds.
func DefaultConfig(commitThreshold, ghostThreshold float64) Config {
	return Config{
		LineThresholds:   []int{10, 40, 100, 250, 600, 1500, 4000},
		FileThresholds:   []int{2, 3, 6, 10, 14, 17, 20},
		DirThresholds:    []int{2, 3, 4, 5, 6, 7, 8},
		NoTestsRisk:      2,
		BreakingRisk:     3,
		LargeChangeRisk:  2,
		LargeChangeLines: 500,
		TODORisk:         1,
		ManifestRisk:     1,
		DriftEpsilon:     0.05,
		GhostThreshold:   ghostThreshold,
		Baseline:         (commitThreshold + ghostThreshold) / 2,
	}
}

// #endregion config

// #region quantizer

// Quantizer derives a Coordinate from a change, its fitness and recent history.
// All clamping into the axis bounds happens here, never in the codec.
type Quantizer struct {
	config Config
}

// NewQuantizer creates a Quantizer.
func NewQuantizer(config Config) *Quantizer {
	return &Quantizer{config: config}
}

// Coordinate computes (κ, σ, δ). recent holds past fitness scores, oldest first.
func (q *Quantizer) Coordinate(sum change.Summary, fitness float64, recent []float64) Coordinate {
	return Coordinate{
		Kappa: q.Kappa(sum),
		Sigma: q.Sigma(sum),
		Delta: q.Delta(sum, fitness, recent),
	}
}

// Kappa quantizes change magnitude: the largest bucket over lines, files and directories.
func (q *Quantizer) Kappa(sum change.Summary) int {
	k := bucket(sum.LinesTouched(), q.config.LineThresholds)
	k = max(k, bucket(sum.FileCount, q.config.FileThresholds))
	k = max(k, bucket(sum.DirectoryCount(), q.config.DirThresholds))
	return min(k, MaxKappa)
}

// Sigma quantizes risk signals into an additive score.
func (q *Quantizer) Sigma(sum change.Summary) int {
	var s int
	if !sum.HasTests {
		s += q.config.NoTestsRisk
	}
	if sum.Breaking {
		s += q.config.BreakingRisk
	}
	if sum.LinesTouched() > q.config.LargeChangeLines {
		s += q.config.LargeChangeRisk
	}
	if sum.HasTODO {
		s += q.config.TODORisk
	}
	if sum.ManifestsTouched > 0 {
		s += q.config.ManifestRisk
	}
	return min(max(s, 0), MaxSigma)
}

// Delta classifies drift: 3 critical, 1 improving, 2 degrading, 0 neutral.
func (q *Quantizer) Delta(sum change.Summary, fitness float64, recent []float64) int {
	if sum.Breaking || fitness < q.config.GhostThreshold {
		return 3
	}
	baseline := q.config.Baseline
	if len(recent) > 0 {
		var total float64
		for _, f := range recent {
			total += f
		}
		baseline = total / float64(len(recent))
	}
	switch {
	case fitness-baseline > q.config.DriftEpsilon:
		return 1
	case baseline-fitness > q.config.DriftEpsilon:
		return 2
	}
	return 0
}

// #endregion quantizer

// #region helpers

// bucket counts the thresholds v reaches; thresholds must be ascending.
func bucket(v int, thresholds []int) int {
	n := 0
	for _, t := range thresholds {
		if v < t {
			break
		}
		n++
	}
	return n
}

// #endregion helpers
