package eval

import (
	"fmt"
	"unicode/utf8"

	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/topology"
)

// #region eval-harness
// EvalHarness validates a commit record before it is handed to the repository backend.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks the record. Every check is reported; the subject length check is
// informational only and never fails the record.
func (h *EvalHarness) Run(rec record.Record) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Only Commit and GhostSave produce records
	check("action", boolValue(rec.Action.ProducesRecord()), rec.Action.ProducesRecord(),
		fmt.Sprintf("action %q does not produce records", rec.Action))

	// 2. Token shape: one action, then domains, then modifiers
	shapeErr := rec.Tokens.Validate()
	check("token_shape", float64(len(rec.Tokens)), shapeErr == nil, fmt.Sprintf("tokens: %v", shapeErr))

	// 3. Symbol decodes to the recorded coordinate
	coord, err := topology.Decode(rec.Symbol)
	symbolPass := err == nil && coord == rec.Coordinate
	check("symbol", float64(rec.Symbol), symbolPass,
		fmt.Sprintf("symbol %U does not decode to %v", rec.Symbol, rec.Coordinate))

	// 4. Fitness range and consistency with the action
	inRange := rec.Fitness >= 0 && rec.Fitness <= 1
	check("fitness_range", rec.Fitness, inRange, fmt.Sprintf("fitness %.4f outside [0,1]", rec.Fitness))

	var floor float64
	switch rec.Action {
	case policy.Commit:
		floor = h.config.CommitThreshold
	case policy.GhostSave:
		floor = h.config.GhostThreshold
	}
	check("fitness_threshold", rec.Fitness, rec.Fitness >= floor,
		fmt.Sprintf("%s record fitness %.4f below %.4f", rec.Action, rec.Fitness, floor))

	// 5. Subject present
	check("subject", float64(utf8.RuneCountInString(rec.Subject)), rec.Subject != "", "empty subject")

	// 6. Subject length: informational only, does not fail
	n := utf8.RuneCountInString(rec.Subject)
	metrics = append(metrics, EvalMetric{
		Name:  "subject_length",
		Value: float64(n),
		Pass:  h.config.MaxSubjectRunes <= 0 || n <= h.config.MaxSubjectRunes,
	})

	passed := len(failReasons) == 0
	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
