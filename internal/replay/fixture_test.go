package replay

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/fitness"
	"github.com/danielpatrickdp/agit/internal/logging"
	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/google/go-cmp/cmp"
)

// #region fixture-tests

// TestFixture_Session loads the session fixture, replays it, and compares every
// tick against its expected outcome. If scoring or policy calibration changes,
// this catches the drift.
func TestFixture_Session(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	config, err := f.Config.ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}
	if config.HistoryWindow != 10 {
		t.Fatalf("expected history window override, got %d", config.HistoryWindow)
	}

	results, ring, err := Replay(f.StartHistory, f.ToTicks(), config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, m := range Compare(results, f.ExpectedResults) {
		t.Error(m)
	}

	s := Summarize(results, ring)
	if s.Commits != 1 || s.GhostSaves != 1 || s.Splits != 1 || s.Waits != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}
	// the empty tick never enters history
	if len(s.FinalHistory) != 4 {
		t.Fatalf("expected 4 history entries, got %v", s.FinalHistory)
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestToReplayConfig_Overrides(t *testing.T) {
	fc := FixtureConfig{
		CommitThreshold: 0.9,
		GhostThreshold:  0.5,
		Weights:         &fitness.Weights{Quality: 2, Complexity: 1, Cohesion: 1},
		Locale:          "fr",
	}
	config, err := fc.ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}
	if config.Engine.Policy.CommitThreshold != 0.9 || config.Engine.Eval.GhostThreshold != 0.5 {
		t.Fatalf("thresholds not applied: %+v", config.Engine.Policy)
	}
	if config.Engine.Topology.GhostThreshold != 0.5 || math.Abs(config.Engine.Topology.Baseline-0.7) > 1e-9 {
		t.Fatalf("topology not recalibrated: %+v", config.Engine.Topology)
	}
	want := fitness.Weights{Quality: 0.5, Complexity: 0.25, Cohesion: 0.25}
	if diff := cmp.Diff(want, config.Engine.Weights); diff != "" {
		t.Fatalf("weights (-want +got):\n%s", diff)
	}
	if config.Engine.Locale != "fr" {
		t.Fatalf("expected locale fr, got %q", config.Engine.Locale)
	}

	bad := FixtureConfig{Weights: &fitness.Weights{Quality: -1}}
	if _, err := bad.ToReplayConfig(); err == nil {
		t.Fatal("expected error for negative weights")
	}
}

func TestFromTicks(t *testing.T) {
	ticks := []logging.TickRecord{
		{
			TickID:     "a",
			Summary:    change.Summary{FileCount: 1},
			History:    []float64{0.6},
			Thresholds: policy.DefaultConfig(),
			Action:     policy.Commit,
			Symbol:     "⡃",
			Subject:    "Add tests",
		},
		{TickID: "b", Action: policy.Wait},
	}
	f := FromTicks("export", ticks)
	if f.Config.CommitThreshold != 0.85 || f.Config.SplitFileCountUpper != 15 {
		t.Fatalf("thresholds not exported: %+v", f.Config)
	}
	if diff := cmp.Diff([]float64{0.6}, f.StartHistory); diff != "" {
		t.Fatalf("start history (-want +got):\n%s", diff)
	}
	want := []FixtureExpectedResult{
		{TickID: "a", Action: "commit", Symbol: "⡃", Subject: "Add tests"},
		{TickID: "b", Action: "wait"},
	}
	if diff := cmp.Diff(want, f.ExpectedResults); diff != "" {
		t.Fatalf("expected results (-want +got):\n%s", diff)
	}
}

// #endregion fixture-tests
