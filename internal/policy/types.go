package policy

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when thresholds violate their ordering or ranges.
var ErrInvalidConfig = errors.New("invalid policy config")

// #region action
// Action is the terminal outcome of one evaluation.
type Action string

const (
	Commit         Action = "commit"
	GhostSave      Action = "ghost_save"
	SplitSuggested Action = "split_suggested"
	Wait           Action = "wait"
)

// ProducesRecord reports whether the action yields a commit record.
func (a Action) ProducesRecord() bool {
	return a == Commit || a == GhostSave
}

// Publishable reports whether a record for this action may ever be pushed.
func (a Action) Publishable() bool {
	return a == Commit
}

// #endregion action

// #region phase
// Phase is the state of the decision machine between and during evaluations.
type Phase string

const (
	Idle       Phase = "idle"
	Evaluating Phase = "evaluating"
)

// #endregion phase

// #region config
// Config holds the thresholds that drive decisions.
type Config struct {
	CommitThreshold       float64 // fitness >= this commits
	GhostThreshold        float64 // fitness >= this ghost-saves
	SplitFileCountUpper   int     // file counts above this are large changes
	SplitConfidenceCutoff float64 // large changes below this fitness get split hints
	MaxSuggestions        int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		CommitThreshold:       0.85,
		GhostThreshold:        0.4,
		SplitFileCountUpper:   15,
		SplitConfidenceCutoff: 0.95,
		MaxSuggestions:        2,
	}
}

// Validate enforces GhostThreshold < CommitThreshold and that both lie in [0, 1].
func (c Config) Validate() error {
	if c.CommitThreshold < 0 || c.CommitThreshold > 1 {
		return fmt.Errorf("%w: commit threshold %.4f outside [0,1]", ErrInvalidConfig, c.CommitThreshold)
	}
	if c.GhostThreshold < 0 || c.GhostThreshold > 1 {
		return fmt.Errorf("%w: ghost threshold %.4f outside [0,1]", ErrInvalidConfig, c.GhostThreshold)
	}
	if c.GhostThreshold >= c.CommitThreshold {
		return fmt.Errorf("%w: ghost threshold %.4f must be below commit threshold %.4f",
			ErrInvalidConfig, c.GhostThreshold, c.CommitThreshold)
	}
	if c.SplitFileCountUpper < 1 {
		return fmt.Errorf("%w: split file count upper %d must be positive", ErrInvalidConfig, c.SplitFileCountUpper)
	}
	if c.SplitConfidenceCutoff < 0 || c.SplitConfidenceCutoff > 1 {
		return fmt.Errorf("%w: split confidence cutoff %.4f outside [0,1]", ErrInvalidConfig, c.SplitConfidenceCutoff)
	}
	return nil
}

// #endregion config

// #region decision
// SplitHint is an advisory grouping for breaking up a large change.
type SplitHint struct {
	By    string `json:"by"`  // "directory" | "extension"
	Key   string `json:"key"` // directory path or extension
	Files int    `json:"files,omitempty"`
}

// Decision is the output of one evaluation.
type Decision struct {
	Action      Action      `json:"action"`
	Reason      string      `json:"reason"`
	Suggestions []string    `json:"suggestions,omitempty"` // Wait only
	SplitHints  []SplitHint `json:"split_hints,omitempty"` // SplitSuggested only
}

// #endregion decision
