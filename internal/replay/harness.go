package replay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/history"
	"github.com/danielpatrickdp/agit/internal/pipeline"
	"github.com/danielpatrickdp/agit/internal/policy"
)

// ActionError marks a tick the engine refused to evaluate.
const ActionError = "error"

// #region types
// Tick is a single recorded change summary for replay.
type Tick struct {
	ID      string
	Summary change.Summary
}

// ReplayConfig bundles the engine config and history window for a replay run.
type ReplayConfig struct {
	Engine        pipeline.Config
	HistoryWindow int
}

// DefaultReplayConfig returns the default engine config and history window.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Engine:        pipeline.DefaultConfig(),
		HistoryWindow: history.DefaultCapacity,
	}
}

// ReplayResult captures the outcome of replaying one tick through the engine.
type ReplayResult struct {
	TickID  string
	Action  string // policy.Action, or ActionError
	Reason  string
	Fitness float64
	Symbol  string
	Tokens  string
	Subject string

	Outcome pipeline.Outcome
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTicks   int
	Commits      int
	GhostSaves   int
	Splits       int
	Waits        int
	Errors       int
	FinalHistory []float64
}

// Mismatch is one divergence between a replay and its expected results.
type Mismatch struct {
	Index    int
	TickID   string
	Field    string
	Expected string
	Actual   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("tick %d (%s): %s expected %q, got %q", m.Index, m.TickID, m.Field, m.Expected, m.Actual)
}

// #endregion types

// #region replay
// Replay runs each tick through a fresh engine, in order, the way the agent does:
// a tick that evaluates a non-empty change pushes its fitness onto the history
// ring. Operates entirely in-memory. The returned ring holds the final history.
func Replay(start []float64, ticks []Tick, config ReplayConfig) ([]ReplayResult, *history.Ring, error) {
	engine, err := pipeline.New(config.Engine, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return nil, nil, fmt.Errorf("replay: %w", err)
	}
	ring := history.NewRing(config.HistoryWindow)
	ring.Restore(start)

	results := make([]ReplayResult, 0, len(ticks))
	for _, tick := range ticks {
		out, err := engine.Evaluate(tick.Summary, ring)
		res := ReplayResult{
			TickID:  tick.ID,
			Action:  string(out.Decision.Action),
			Reason:  out.Decision.Reason,
			Fitness: out.Fitness.Score,
			Outcome: out,
		}
		if err != nil {
			res.Action = ActionError
			res.Reason = err.Error()
			// A rejected record still measured a real change.
			if errors.Is(err, pipeline.ErrRecordRejected) {
				ring.Push(out.Fitness.Score)
			}
			results = append(results, res)
			continue
		}
		if out.Coordinate != nil {
			res.Symbol = string(out.Symbol())
		}
		if out.Record != nil {
			res.Tokens = out.Record.Tokens.String()
			res.Subject = out.Record.Subject
		}
		if tick.Summary.FileCount > 0 {
			ring.Push(out.Fitness.Score)
		}
		results = append(results, res)
	}
	return results, ring, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, final *history.Ring) ReplaySummary {
	s := ReplaySummary{TotalTicks: len(results)}
	if final != nil {
		s.FinalHistory = final.Values()
	}
	for _, r := range results {
		switch r.Action {
		case string(policy.Commit):
			s.Commits++
		case string(policy.GhostSave):
			s.GhostSaves++
		case string(policy.SplitSuggested):
			s.Splits++
		case string(policy.Wait):
			s.Waits++
		case ActionError:
			s.Errors++
		}
	}
	return s
}

// Compare checks results against expected outcomes by position.
func Compare(results []ReplayResult, expected []FixtureExpectedResult) []Mismatch {
	var out []Mismatch
	if len(results) != len(expected) {
		out = append(out, Mismatch{
			Index:    -1,
			Field:    "count",
			Expected: fmt.Sprint(len(expected)),
			Actual:   fmt.Sprint(len(results)),
		})
	}
	for i := 0; i < min(len(results), len(expected)); i++ {
		got, want := results[i], expected[i]
		check := func(field, w, g string) {
			if w != g {
				out = append(out, Mismatch{Index: i, TickID: want.TickID, Field: field, Expected: w, Actual: g})
			}
		}
		check("tick_id", want.TickID, got.TickID)
		check("action", want.Action, got.Action)
		if want.Symbol != "" {
			check("symbol", want.Symbol, got.Symbol)
		}
		if want.Subject != "" {
			check("subject", want.Subject, got.Subject)
		}
	}
	return out
}

// #endregion replay
