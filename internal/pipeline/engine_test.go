package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/history"
	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
	"github.com/google/go-cmp/cmp"
)

func newEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func scenarioA() change.Summary {
	return change.Summary{
		FileCount:    5,
		Extensions:   map[string]int{".go": 4, ".md": 1},
		Directories:  []string{"internal/api"},
		LinesAdded:   120,
		LinesRemoved: 10,
		HasTests:     true,
		HasDocs:      true,
	}
}

func scenarioC() change.Summary {
	return change.Summary{
		FileCount:   20,
		Directories: []string{"a", "b", "c", "d", "e", "f", "g", "h"},
		LinesAdded:  300,
		Breaking:    true,
	}
}

// #region scenario-tests

func TestScenarioCommit(t *testing.T) {
	e := newEngine(t, nil)
	out, err := e.Evaluate(scenarioA(), history.NewRing(10))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(out.Fitness.Score-0.88) > 1e-9 {
		t.Fatalf("expected fitness 0.88, got %.6f", out.Fitness.Score)
	}
	if out.Decision.Action != policy.Commit {
		t.Fatalf("expected commit, got %s", out.Decision.Action)
	}
	want := topology.Coordinate{Kappa: 3, Sigma: 0, Delta: 1}
	if out.Coordinate == nil || *out.Coordinate != want {
		t.Fatalf("expected %v, got %v", want, out.Coordinate)
	}
	if out.Record == nil {
		t.Fatal("expected a commit record")
	}
	rec := out.Record
	if diff := cmp.Diff(token.Sequence{token.Add, token.Testing, token.Documentation, token.Enhancement}, rec.Tokens); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
	if rec.Symbol != '⡃' || out.Symbol() != rec.Symbol {
		t.Fatalf("unexpected symbol %c", rec.Symbol)
	}
	if rec.Subject != "Add tests and documentation (enhancement)" {
		t.Fatalf("unexpected subject %q", rec.Subject)
	}
	if out.Eval == nil || !out.Eval.Passed {
		t.Fatalf("expected record to pass validation: %+v", out.Eval)
	}
}

func TestScenarioEmptyChangeWaits(t *testing.T) {
	e := newEngine(t, nil)
	out, err := e.Evaluate(change.Summary{FileCount: 0, LinesAdded: 500, HasTests: true, Breaking: true}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out.Decision.Action != policy.Wait {
		t.Fatalf("expected wait, got %s", out.Decision.Action)
	}
	if out.Tokens != nil || out.Record != nil || out.Coordinate != nil {
		t.Fatalf("expected no tokens, topology or record: %+v", out)
	}
}

func TestScenarioLargeBreakingSplits(t *testing.T) {
	e := newEngine(t, nil)
	out, err := e.Evaluate(scenarioC(), history.NewRing(10))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out.Decision.Action != policy.SplitSuggested {
		t.Fatalf("expected split, got %s", out.Decision.Action)
	}
	c := out.Coordinate
	if c == nil || c.Kappa != 7 || c.Sigma < 5 || c.Delta != 3 {
		t.Fatalf("unexpected coordinate %v", c)
	}
	if out.Record != nil || out.Tokens != nil {
		t.Fatal("split decisions produce no record")
	}
	if len(out.Decision.SplitHints) == 0 {
		t.Fatal("expected split hints")
	}
}

func TestScenarioRenderDeterministic(t *testing.T) {
	e := newEngine(t, nil)
	seq := token.Sequence{token.Update, token.Documentation}
	sym := topology.Encode(topology.Coordinate{Kappa: 1, Sigma: 0, Delta: 1})
	a := e.Renderer().Render(seq, sym, "default").Text
	b := e.Renderer().Render(seq, sym, "default").Text
	if a != b {
		t.Fatalf("renderings differ: %q vs %q", a, b)
	}
}

// #endregion scenario-tests

// #region decision-tests

func TestGhostSave(t *testing.T) {
	e := newEngine(t, nil)
	out, err := e.Evaluate(change.Summary{
		FileCount:    2,
		Extensions:   map[string]int{".go": 2},
		Directories:  []string{"internal/store"},
		LinesAdded:   20,
		LinesRemoved: 10,
	}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out.Decision.Action != policy.GhostSave {
		t.Fatalf("expected ghost save, got %s (fitness %.4f)", out.Decision.Action, out.Fitness.Score)
	}
	if out.Record == nil || out.Record.Action != policy.GhostSave {
		t.Fatalf("expected ghost record, got %+v", out.Record)
	}
}

func TestLowFitnessWaitsWithSuggestions(t *testing.T) {
	e := newEngine(t, nil)
	out, err := e.Evaluate(change.Summary{
		FileCount:   1,
		Extensions:  map[string]int{".go": 1},
		Directories: []string{"a", "b"},
		LinesAdded:  3,
		HasTODO:     true,
	}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out.Decision.Action != policy.Wait {
		t.Fatalf("expected wait, got %s", out.Decision.Action)
	}
	if len(out.Decision.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %v", out.Decision.Suggestions)
	}
	if out.Coordinate == nil || out.Coordinate.Delta != 3 {
		t.Fatalf("expected critical drift, got %v", out.Coordinate)
	}
	if out.Record != nil {
		t.Fatal("wait produces no record")
	}
}

func TestInvalidSummaryRejected(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Evaluate(change.Summary{FileCount: 1, LinesAdded: -1}, nil)
	if !errors.Is(err, change.ErrInvalidSummary) {
		t.Fatalf("expected ErrInvalidSummary, got %v", err)
	}
}

// #endregion decision-tests

// #region history-tests

func TestEvaluateDoesNotMutateHistory(t *testing.T) {
	e := newEngine(t, nil)
	ring := history.NewRing(5)
	ring.Push(0.5)
	before := ring.Values()

	if _, err := e.Evaluate(scenarioA(), ring); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if diff := cmp.Diff(before, ring.Values()); diff != "" {
		t.Fatalf("history changed:\n%s", diff)
	}
}

func TestHistoryDrivesDrift(t *testing.T) {
	e := newEngine(t, nil)
	ring := history.NewRing(5)
	for i := 0; i < 5; i++ {
		ring.Push(0.95)
	}
	out, err := e.Evaluate(scenarioA(), ring)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out.Coordinate.Delta != 2 {
		t.Fatalf("expected negative drift against a high baseline, got %v", out.Coordinate)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	e := newEngine(t, nil)
	ring := history.NewRing(5)
	ring.Push(0.7)
	first, err := e.Evaluate(scenarioA(), ring)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := e.Evaluate(scenarioA(), ring)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("outcomes differ:\n%s", diff)
	}
}

// #endregion history-tests

func TestUnsupportedLocaleFallsBack(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Locale = "tlh" })
	out, err := e.Evaluate(scenarioA(), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !out.Record.Fallback || out.Record.Locale != "en" {
		t.Fatalf("expected fallback to en, got %+v", out.Record)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.GhostThreshold = 0.9
	if _, err := New(cfg, nil); !errors.Is(err, policy.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
