package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/fitness"
	"github.com/danielpatrickdp/agit/internal/logging"
	"github.com/danielpatrickdp/agit/internal/topology"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	StartHistory    []float64               `json:"start_history,omitempty"`
	Ticks           []FixtureTick           `json:"ticks"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureTick is one recorded change summary.
type FixtureTick struct {
	TickID  string         `json:"tick_id"`
	Summary change.Summary `json:"summary"`
}

// FixtureExpectedResult captures the expected outcome per tick. Symbol and
// Subject are only compared when set.
type FixtureExpectedResult struct {
	TickID  string `json:"tick_id"`
	Action  string `json:"action"`
	Symbol  string `json:"symbol,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// FixtureConfig overrides engine defaults. Zero values keep the default.
type FixtureConfig struct {
	CommitThreshold       float64          `json:"commit_threshold,omitempty"`
	GhostThreshold        float64          `json:"ghost_threshold,omitempty"`
	SplitFileCountUpper   int              `json:"split_file_count_upper,omitempty"`
	SplitConfidenceCutoff float64          `json:"split_confidence_cutoff,omitempty"`
	Weights               *fitness.Weights `json:"weights,omitempty"`
	HistoryWindow         int              `json:"history_window,omitempty"`
	Locale                string           `json:"locale,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToTicks converts the fixture ticks to replay ticks.
func (f *Fixture) ToTicks() []Tick {
	ticks := make([]Tick, len(f.Ticks))
	for i, ft := range f.Ticks {
		ticks[i] = Tick{ID: ft.TickID, Summary: ft.Summary}
	}
	return ticks
}

// ToReplayConfig applies the fixture overrides to the default replay config.
// Topology and eval thresholds follow the policy thresholds.
func (fc *FixtureConfig) ToReplayConfig() (ReplayConfig, error) {
	config := DefaultReplayConfig()
	pc := &config.Engine.Policy
	if fc.CommitThreshold != 0 {
		pc.CommitThreshold = fc.CommitThreshold
	}
	if fc.GhostThreshold != 0 {
		pc.GhostThreshold = fc.GhostThreshold
	}
	if fc.SplitFileCountUpper != 0 {
		pc.SplitFileCountUpper = fc.SplitFileCountUpper
	}
	if fc.SplitConfidenceCutoff != 0 {
		pc.SplitConfidenceCutoff = fc.SplitConfidenceCutoff
	}
	if fc.Weights != nil {
		if err := fc.Weights.Validate(); err != nil {
			return ReplayConfig{}, fmt.Errorf("fixture weights: %w", err)
		}
		config.Engine.Weights, _ = fc.Weights.Normalized()
	}
	if fc.HistoryWindow != 0 {
		config.HistoryWindow = fc.HistoryWindow
	}
	config.Engine.Locale = fc.Locale

	drift := config.Engine.Topology.DriftEpsilon
	config.Engine.Topology = topology.DefaultConfig(pc.CommitThreshold, pc.GhostThreshold)
	config.Engine.Topology.DriftEpsilon = drift
	config.Engine.Eval.CommitThreshold = pc.CommitThreshold
	config.Engine.Eval.GhostThreshold = pc.GhostThreshold
	return config, nil
}

// #endregion fixture-loader

// #region fixture-export

// FromTicks builds a fixture from ledger tick records, oldest first. The first
// tick's thresholds and history seed the fixture config.
func FromTicks(description string, ticks []logging.TickRecord) Fixture {
	f := Fixture{
		Description:     description,
		Ticks:           make([]FixtureTick, len(ticks)),
		ExpectedResults: make([]FixtureExpectedResult, len(ticks)),
	}
	if len(ticks) > 0 {
		th := ticks[0].Thresholds
		f.Config = FixtureConfig{
			CommitThreshold:       th.CommitThreshold,
			GhostThreshold:        th.GhostThreshold,
			SplitFileCountUpper:   th.SplitFileCountUpper,
			SplitConfidenceCutoff: th.SplitConfidenceCutoff,
		}
		f.StartHistory = append([]float64(nil), ticks[0].History...)
	}
	for i, t := range ticks {
		f.Ticks[i] = FixtureTick{TickID: t.TickID, Summary: t.Summary}
		f.ExpectedResults[i] = FixtureExpectedResult{
			TickID:  t.TickID,
			Action:  string(t.Action),
			Symbol:  t.Symbol,
			Subject: t.Subject,
		}
	}
	return f
}

// #endregion fixture-export
