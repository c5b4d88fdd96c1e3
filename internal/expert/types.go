package expert

// #region names
// Names of the sub-scores, in the order Score returns them.
const (
	Quality    = "quality"
	Complexity = "complexity"
	Cohesion   = "cohesion"
)

// #endregion names

// #region sub-score
// SubScore is one expert opinion about a change.
type SubScore struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"` // clipped to [0, 1]
	Rationale string  `json:"rationale"`
}

// #endregion sub-score

// #region config
// Config holds the calibration knobs for the three experts.
type Config struct {
	QualityBase  float64 // quality before bonuses and penalties
	TestsBonus   float64
	DocsBonus    float64
	TODOPenalty  float64
	BandLow      int // complexity peak band, inclusive
	BandHigh     int
	BelowBandPer float64 // complexity lost per file below BandLow
	Neutral      float64 // returned for inputs an expert cannot judge
	SharedExtMix float64 // weight of the shared-extension bonus within cohesion
}

// DefaultConfig returns the default expert calibration.
func DefaultConfig() Config {
	return Config{
		QualityBase:  0.4,
		TestsBonus:   0.3,
		DocsBonus:    0.15,
		TODOPenalty:  0.3,
		BandLow:      3,
		BandHigh:     7,
		BelowBandPer: 0.2,
		Neutral:      0.5,
		SharedExtMix: 0.2,
	}
}

// #endregion config
