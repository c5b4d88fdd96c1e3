package token

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/google/go-cmp/cmp"
)

func newTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tk, err := NewTokenizer(DefaultDomainRules())
	if err != nil {
		t.Fatalf("NewTokenizer: %v", err)
	}
	return tk
}

// #region action-tests

func TestTokenizeAction(t *testing.T) {
	tk := newTokenizer(t)
	tests := []struct {
		name string
		sum  change.Summary
		want Token
	}{
		{"no-lines", change.Summary{FileCount: 1}, Update},
		{"only-added", change.Summary{FileCount: 1, LinesAdded: 40}, Add},
		{"only-removed", change.Summary{FileCount: 1, LinesRemoved: 40}, Remove},
		{"mostly-removed", change.Summary{FileCount: 1, LinesAdded: 10, LinesRemoved: 50}, Remove},
		{"mostly-added", change.Summary{FileCount: 1, LinesAdded: 120, LinesRemoved: 10}, Add},
		{"balanced", change.Summary{FileCount: 1, LinesAdded: 50, LinesRemoved: 48}, Refactor},
		{"mixed", change.Summary{FileCount: 1, LinesAdded: 60, LinesRemoved: 30}, Update},
		{"fix-dir", change.Summary{FileCount: 1, LinesAdded: 60, Directories: []string{"internal/bugfix"}}, Fix},
		{"fix-dir-nested", change.Summary{FileCount: 1, LinesAdded: 5, LinesRemoved: 5, Directories: []string{"fixes/login"}}, Fix},
		{"fix-dir-separator", change.Summary{FileCount: 1, LinesAdded: 60, Directories: []string{"hotfix-login"}}, Fix},
		{"fix-dir-exact", change.Summary{FileCount: 1, LinesAdded: 60, Directories: []string{"web/Fix"}}, Fix},
		{"fixtures-not-fix", change.Summary{FileCount: 1, LinesAdded: 60, Directories: []string{"testdata/fixtures"}}, Add},
		{"bugsnag-not-fix", change.Summary{FileCount: 1, LinesAdded: 60, Directories: []string{"vendor/bugsnag/client"}}, Add},
		{"prefix-word-not-fix", change.Summary{FileCount: 1, LinesAdded: 60, Directories: []string{"fixedpoint"}}, Add},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tk.Tokenize(tt.sum).Action(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// #endregion action-tests

// #region domain-tests

func TestTokenizeDomains(t *testing.T) {
	tk := newTokenizer(t)
	tests := []struct {
		name string
		sum  change.Summary
		want []Token
	}{
		{"unmapped", change.Summary{FileCount: 2, Directories: []string{"cmd/tool"}}, []Token{General}},
		{"empty", change.Summary{}, []Token{General}},
		{"auth-nested", change.Summary{FileCount: 1, Directories: []string{"internal/auth/jwt"}}, []Token{Auth}},
		{"top-level-auth", change.Summary{FileCount: 1, Directories: []string{"auth"}}, []Token{Auth}},
		{"security-and-tests", change.Summary{FileCount: 2, Directories: []string{"pkg/crypto"}, HasTests: true}, []Token{Security, Testing}},
		{"docs-by-extension", change.Summary{FileCount: 1, Extensions: map[string]int{".md": 1}}, []Token{Documentation}},
		{"docs-flag", change.Summary{FileCount: 1, HasDocs: true}, []Token{Documentation}},
		{"cache-feature", change.Summary{FileCount: 2, Directories: []string{"features/cart", "internal/cache"}}, []Token{Performance, Feature}},
		{"case-insensitive", change.Summary{FileCount: 1, Directories: []string{"Internal/Auth"}}, []Token{Auth}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tk.Tokenize(tt.sum).Domains()); diff != "" {
				t.Errorf("domains mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// #endregion domain-tests

// #region modifier-tests

func TestTokenizeModifiers(t *testing.T) {
	tk := newTokenizer(t)

	got := tk.Tokenize(change.Summary{FileCount: 1, LinesAdded: 4, LinesRemoved: 2, Directories: []string{"fix"}, Breaking: true})
	want := Sequence{Fix, General, EdgeCase, Bug, Critical}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}

	got = tk.Tokenize(change.Summary{FileCount: 1, LinesAdded: 100})
	want = Sequence{Add, General, Enhancement}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestCriticalOnlyWhenBreaking(t *testing.T) {
	tk := newTokenizer(t)
	for _, sum := range []change.Summary{
		{FileCount: 30, LinesRemoved: 5000, HasTODO: true},
		{FileCount: 1, LinesAdded: 1, Directories: []string{"security"}},
	} {
		for _, m := range tk.Tokenize(sum).Modifiers() {
			if m == Critical {
				t.Fatalf("unexpected Critical for %+v", sum)
			}
		}
	}
}

// #endregion modifier-tests

func TestTokenizeAlwaysValid(t *testing.T) {
	tk := newTokenizer(t)
	sums := []change.Summary{
		{},
		{FileCount: 1},
		{FileCount: 999, LinesAdded: 1 << 20, LinesRemoved: 1 << 20, Breaking: true, HasTODO: true},
		{FileCount: 3, Directories: []string{"", "/", "a/b/c"}, Extensions: map[string]int{"": 3}},
	}
	for _, s := range sums {
		seq := tk.Tokenize(s)
		if err := seq.Validate(); err != nil {
			t.Errorf("Tokenize(%+v) = %v: %v", s, seq, err)
		}
	}
}

func TestNewTokenizerRejectsBadRules(t *testing.T) {
	if _, err := NewTokenizer([]DomainRule{{Domain: Fix}}); err == nil {
		t.Fatal("expected error for non-domain rule")
	}
	if _, err := NewTokenizer([]DomainRule{{Domain: Auth, Segments: []string{"[auth"}}}); err == nil {
		t.Fatal("expected error for bad pattern")
	}
}

// #region sequence-tests

func TestGlyphRoundTrip(t *testing.T) {
	seq := Sequence{Fix, Auth, EdgeCase}
	if seq.Glyphs() != "⠋⠊⠭.⠁⠥⠞⠓.⠑⠙⠛⠑" {
		t.Fatalf("unexpected glyphs %q", seq.Glyphs())
	}
	back, err := ParseGlyphs(seq.Glyphs())
	if err != nil {
		t.Fatalf("ParseGlyphs: %v", err)
	}
	if diff := cmp.Diff(seq, back); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
}

func TestGlyphsUniqueAndWide(t *testing.T) {
	seen := map[string]Token{}
	for tok, e := range vocabulary {
		if prev, dup := seen[e.glyph]; dup {
			t.Fatalf("%s and %s share glyph %q", tok, prev, e.glyph)
		}
		seen[e.glyph] = tok
		if len([]rune(e.glyph)) < 2 {
			t.Fatalf("%s glyph %q is a single cell", tok, e.glyph)
		}
	}
}

func TestSequenceValidate(t *testing.T) {
	bad := []Sequence{
		nil,
		{Fix},
		{Auth, Fix},
		{Fix, EdgeCase, Auth},
		{Fix, Auth, EdgeCase, Auth},
		{Fix, Add},
		{Fix, "Nope"},
	}
	for _, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSequence) {
			t.Errorf("Validate(%v): expected ErrInvalidSequence, got %v", s, err)
		}
	}
	if err := (Sequence{Update, Documentation}).Validate(); err != nil {
		t.Fatalf("valid sequence rejected: %v", err)
	}
}

func TestParseNames(t *testing.T) {
	seq, err := ParseNames("update, documentation,edge_case")
	if err != nil {
		t.Fatalf("ParseNames: %v", err)
	}
	if diff := cmp.Diff(Sequence{Update, Documentation, EdgeCase}, seq); diff != "" {
		t.Fatalf("mismatch:\n%s", diff)
	}
	if _, err := ParseNames("update,nothing"); err == nil {
		t.Fatal("expected error for unknown name")
	}
}

func TestKey(t *testing.T) {
	if EdgeCase.Key() != "edge_case" || Auth.Key() != "auth" {
		t.Fatalf("unexpected keys %q %q", EdgeCase.Key(), Auth.Key())
	}
}

// #endregion sequence-tests
