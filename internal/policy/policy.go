package policy

import (
	"fmt"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/expert"
	"github.com/danielpatrickdp/agit/internal/fitness"
)

// #region machine

// Machine maps fitness and change size to an action. It cycles
// Idle -> Evaluating -> Idle around every call to Evaluate.
type Machine struct {
	config Config
	phase  Phase
}

// NewMachine creates a machine in the Idle phase. The config is expected to be
// validated already; an invalid config is a programming error.
func NewMachine(config Config) *Machine {
	if err := config.Validate(); err != nil {
		panic(err)
	}
	return &Machine{config: config, phase: Idle}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Config returns the thresholds in use.
func (m *Machine) Config() Config {
	return m.config
}

// Evaluate applies the rules in strict priority order: empty change, large change,
// commit threshold, ghost threshold, wait.
func (m *Machine) Evaluate(sum change.Summary, fit fitness.Result) Decision {
	if m.phase != Idle {
		panic(fmt.Sprintf("policy: Evaluate called in phase %s", m.phase))
	}
	m.phase = Evaluating
	defer func() { m.phase = Idle }()

	// 1. Nothing to commit
	if sum.FileCount == 0 {
		return Decision{Action: Wait, Reason: "no changed files"}
	}

	// 2. Large change without high confidence
	if sum.FileCount > m.config.SplitFileCountUpper && fit.Score < m.config.SplitConfidenceCutoff {
		return Decision{
			Action: SplitSuggested,
			Reason: fmt.Sprintf("%d files exceeds %d with fitness %.4f below %.4f",
				sum.FileCount, m.config.SplitFileCountUpper, fit.Score, m.config.SplitConfidenceCutoff),
			SplitHints: splitHints(sum),
		}
	}

	// 3. Commit
	if fit.Score >= m.config.CommitThreshold {
		return Decision{
			Action: Commit,
			Reason: fmt.Sprintf("fitness %.4f >= commit threshold %.4f", fit.Score, m.config.CommitThreshold),
		}
	}

	// 4. Local-only save
	if fit.Score >= m.config.GhostThreshold {
		return Decision{
			Action: GhostSave,
			Reason: fmt.Sprintf("fitness %.4f >= ghost threshold %.4f", fit.Score, m.config.GhostThreshold),
		}
	}

	// 5. Wait
	return Decision{
		Action:      Wait,
		Reason:      fmt.Sprintf("fitness %.4f below ghost threshold %.4f", fit.Score, m.config.GhostThreshold),
		Suggestions: suggestions(fit, m.config.MaxSuggestions),
	}
}

// #endregion machine

// #region helpers

var suggestionText = map[string]string{
	expert.Quality:    "add tests or documentation and resolve TODO markers",
	expert.Complexity: "keep the change within a handful of files",
	expert.Cohesion:   "limit the change to fewer directories and file types",
}

// suggestions takes the lowest-contributing sub-scores first.
func suggestions(fit fitness.Result, max int) []string {
	ranked := fitness.Ranked(fit.Scores)
	var out []string
	for i := len(ranked) - 1; i >= 0 && len(out) < max; i-- {
		if text, ok := suggestionText[ranked[i].Name]; ok {
			out = append(out, text)
		}
	}
	return out
}

// splitHints groups the change by directory, then by extension.
func splitHints(sum change.Summary) []SplitHint {
	var hints []SplitHint
	for _, d := range sum.SortedDirectories() {
		hints = append(hints, SplitHint{By: "directory", Key: d})
	}
	for _, ext := range sum.SortedExtensions() {
		hints = append(hints, SplitHint{By: "extension", Key: ext, Files: sum.Extensions[ext]})
	}
	return hints
}

// #endregion helpers
