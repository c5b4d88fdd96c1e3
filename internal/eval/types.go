package eval

// #region eval-config
// EvalConfig holds thresholds for pre-commit record validation.
type EvalConfig struct {
	CommitThreshold float64 // commit records must reach this fitness
	GhostThreshold  float64 // ghost records must reach this fitness
	MaxSubjectRunes int     // informational: warn on long subjects
}

// DefaultEvalConfig returns defaults matching the default policy thresholds.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		CommitThreshold: 0.85,
		GhostThreshold:  0.4,
		MaxSubjectRunes: 72,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of record validation.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
