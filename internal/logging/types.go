package logging

import (
	"time"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/fitness"
	"github.com/danielpatrickdp/agit/internal/policy"
)

// Trigger types for provenance rows.
const (
	TriggerInterval = "interval"
	TriggerWatch    = "watch"
	TriggerManual   = "manual"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	RecordID    string // empty when the tick produced no record
	Repo        string
	TriggerType string
	TickJSON    string
	Decision    string // policy.Action
	Reason      string
	CreatedAt   time.Time
}

// #endregion provenance-entry

// #region tick-record
// TickRecord captures the complete inputs and outputs of one evaluation tick.
// Serialized as JSON into provenance_log.tick_json for deterministic replay.
type TickRecord struct {
	TickID  string         `json:"tick_id"`
	Summary change.Summary `json:"summary"`

	// Fused fitness as evaluated at runtime
	Fitness float64                `json:"fitness"`
	Scores  []fitness.Contribution `json:"scores"`
	History []float64              `json:"history,omitempty"` // ring contents before the tick

	// Policy thresholds active at decision time
	Thresholds policy.Config `json:"thresholds"`

	// Outcome
	Action  policy.Action `json:"action"`
	Reason  string        `json:"reason"`
	Tokens  string        `json:"tokens,omitempty"`
	Symbol  string        `json:"symbol,omitempty"`
	Subject string        `json:"subject,omitempty"`
}

// #endregion tick-record
