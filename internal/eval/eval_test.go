package eval

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
)

func makeRecord(action policy.Action, fitness float64) record.Record {
	c := topology.Coordinate{Kappa: 3, Sigma: 0, Delta: 1}
	return record.Record{
		Action:     action,
		Tokens:     token.Sequence{token.Add, token.Testing, token.Enhancement},
		Coordinate: c,
		Symbol:     topology.Encode(c),
		Locale:     "en",
		Subject:    "Add tests (enhancement)",
		Fitness:    fitness,
	}
}

func TestEvalPassesOnValidRecord(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())

	result := h.Run(makeRecord(policy.Commit, 0.88))

	if !result.Passed {
		t.Fatalf("expected pass on valid record, got fail: %s", result.Reason)
	}
	if len(result.Metrics) == 0 {
		t.Fatal("expected metrics")
	}
}

func TestEvalGhostRecordPasses(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())

	result := h.Run(makeRecord(policy.GhostSave, 0.6))

	if !result.Passed {
		t.Fatalf("expected ghost record to pass: %s", result.Reason)
	}
}

func TestEvalFailures(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	tests := []struct {
		name   string
		mutate func(*record.Record)
		metric string
	}{
		{"wait-action", func(r *record.Record) { r.Action = policy.Wait }, "action"},
		{"bad-shape", func(r *record.Record) { r.Tokens = token.Sequence{token.Testing, token.Add} }, "token_shape"},
		{"symbol-mismatch", func(r *record.Record) { r.Symbol = topology.Base }, "symbol"},
		{"symbol-outside", func(r *record.Record) { r.Symbol = 'x' }, "symbol"},
		{"fitness-range", func(r *record.Record) { r.Fitness = 1.2 }, "fitness_range"},
		{"commit-below-threshold", func(r *record.Record) { r.Fitness = 0.5 }, "fitness_threshold"},
		{"empty-subject", func(r *record.Record) { r.Subject = "" }, "subject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := makeRecord(policy.Commit, 0.9)
			tt.mutate(&rec)

			result := h.Run(rec)

			if result.Passed {
				t.Fatal("expected fail")
			}
			found := false
			for _, m := range result.Metrics {
				if m.Name == tt.metric && !m.Pass {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s metric to fail: %+v", tt.metric, result.Metrics)
			}
		})
	}
}

func TestEvalSubjectLengthInformationalOnly(t *testing.T) {
	config := DefaultEvalConfig()
	config.MaxSubjectRunes = 10
	h := NewEvalHarness(config)

	rec := makeRecord(policy.Commit, 0.9)
	rec.Subject = strings.Repeat("x", 80)
	result := h.Run(rec)

	if !result.Passed {
		t.Fatalf("subject length should be informational, not blocking: %s", result.Reason)
	}
	for _, m := range result.Metrics {
		if m.Name == "subject_length" && m.Pass {
			t.Fatal("subject_length metric should show pass=false when too long")
		}
	}
}

func TestEvalMetricCount(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())

	result := h.Run(makeRecord(policy.Commit, 0.9))

	// action + token_shape + symbol + fitness_range + fitness_threshold + subject + subject_length
	if len(result.Metrics) != 7 {
		t.Fatalf("expected 7 metrics, got %d", len(result.Metrics))
	}
}

func TestEvalReasonCountsFailures(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	rec := makeRecord(policy.Commit, 0.9)
	rec.Subject = ""
	rec.Symbol = 'x'

	result := h.Run(rec)

	if !strings.Contains(result.Reason, "2 checks") {
		t.Fatalf("expected reason to count failures, got %q", result.Reason)
	}
}
