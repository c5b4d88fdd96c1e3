package expert

import (
	"math"
	"strings"
	"testing"

	"github.com/danielpatrickdp/agit/internal/change"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// #region quality-tests

func TestQuality(t *testing.T) {
	s := NewScorer(DefaultConfig())
	tests := []struct {
		name string
		sum  change.Summary
		want float64
	}{
		{"bare", change.Summary{FileCount: 1}, 0.4},
		{"tests", change.Summary{FileCount: 1, HasTests: true}, 0.7},
		{"tests-docs", change.Summary{FileCount: 1, HasTests: true, HasDocs: true}, 0.85},
		{"todo", change.Summary{FileCount: 1, HasTODO: true}, 0.1},
		{"everything", change.Summary{FileCount: 1, HasTests: true, HasDocs: true, HasTODO: true}, 0.55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.quality(tt.sum)
			if !near(got.Value, tt.want) {
				t.Errorf("got %f, want %f", got.Value, tt.want)
			}
		})
	}
}

func TestQualityClipsAtZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TODOPenalty = 2
	got := NewScorer(cfg).quality(change.Summary{HasTODO: true})
	if got.Value != 0 {
		t.Fatalf("expected clip to 0, got %f", got.Value)
	}
}

// #endregion quality-tests

// #region complexity-tests

func TestComplexityBand(t *testing.T) {
	s := NewScorer(DefaultConfig())
	for n := 3; n <= 7; n++ {
		if got := s.complexity(change.Summary{FileCount: n}); got.Value != 1 {
			t.Errorf("files=%d: expected 1 inside band, got %f", n, got.Value)
		}
	}
	if got := s.complexity(change.Summary{FileCount: 1}); !near(got.Value, 0.6) {
		t.Errorf("files=1: expected 0.6, got %f", got.Value)
	}
}

func TestComplexityDecreasesAboveBand(t *testing.T) {
	s := NewScorer(DefaultConfig())
	prev := 1.0
	for n := 8; n <= 200; n++ {
		got := s.complexity(change.Summary{FileCount: n}).Value
		if got >= prev {
			t.Fatalf("files=%d: expected strictly decreasing, got %f after %f", n, got, prev)
		}
		prev = got
	}
}

func TestComplexityZeroFilesIsNeutral(t *testing.T) {
	got := NewScorer(DefaultConfig()).complexity(change.Summary{})
	if got.Value != 0.5 {
		t.Fatalf("expected neutral 0.5, got %f", got.Value)
	}
	if !strings.Contains(got.Rationale, "no files") {
		t.Fatalf("expected rationale to flag no files, got %q", got.Rationale)
	}
}

// #endregion complexity-tests

// #region cohesion-tests

func TestCohesion(t *testing.T) {
	s := NewScorer(DefaultConfig())
	tests := []struct {
		name string
		sum  change.Summary
		want float64
	}{
		{"one-dir-mixed", change.Summary{FileCount: 5, Directories: []string{"src"}}, 0.8},
		{"one-dir-shared", change.Summary{FileCount: 4, Directories: []string{"src"}, Extensions: map[string]int{".go": 4}}, 1.0},
		{"no-dirs", change.Summary{FileCount: 2}, 0.8},
		{"scattered", change.Summary{FileCount: 4, Directories: []string{"a", "b", "c", "d"}}, 0.8 * 0.25},
		{"one-dir-per-file-many", change.Summary{FileCount: 2, Directories: []string{"a", "b", "c", "d"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.cohesion(tt.sum)
			if !near(got.Value, tt.want) {
				t.Errorf("got %f, want %f", got.Value, tt.want)
			}
		})
	}
}

// #endregion cohesion-tests

func TestScoreOrderAndRange(t *testing.T) {
	scores := NewScorer(DefaultConfig()).Score(change.Summary{FileCount: 40, Directories: []string{"a", "b"}, HasTODO: true})
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	want := []string{Quality, Complexity, Cohesion}
	for i, sc := range scores {
		if sc.Name != want[i] {
			t.Errorf("score %d: got %s, want %s", i, sc.Name, want[i])
		}
		if sc.Value < 0 || sc.Value > 1 {
			t.Errorf("%s out of range: %f", sc.Name, sc.Value)
		}
		if sc.Rationale == "" {
			t.Errorf("%s: empty rationale", sc.Name)
		}
	}
}
