package token

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/danielpatrickdp/agit/internal/change"
)

// #region rules

// DomainRule maps touched directories, extensions or summary flags to a domain.
// Segments are glob patterns for one path segment ("auth*"); they match that segment
// anywhere in a touched directory.
type DomainRule struct {
	Domain     Token    `toml:"domain" yaml:"domain"`
	Segments   []string `toml:"segments" yaml:"segments"`
	Extensions []string `toml:"extensions" yaml:"extensions"`
	Flag       string   `toml:"flag" yaml:"flag"` // "has_tests" | "has_docs"
}

// DefaultDomainRules returns the built-in mapping, in canonical domain order.
func DefaultDomainRules() []DomainRule {
	return []DomainRule{
		{Domain: Auth, Segments: []string{"auth*", "login*", "oauth*", "session*"}},
		{Domain: Security, Segments: []string{"security*", "crypto*", "secret*", "tls"}},
		{Domain: Performance, Segments: []string{"perf*", "bench*", "cache*"}},
		{Domain: Testing, Segments: []string{"test*", "spec*", "e2e"}, Flag: "has_tests"},
		{Domain: Documentation, Segments: []string{"doc*"}, Extensions: []string{".md", ".rst", ".adoc"}, Flag: "has_docs"},
		{Domain: Feature, Segments: []string{"feature*"}},
	}
}

// fixSegments mark a change as a fix when any touched directory matches. A
// prefix only counts before a separator, so "fixtures" or "bugsnag" do not.
var fixSegments = []string{
	"{fix,fixes,bug,bugs,bugfix,bugfixes,hotfix,hotfixes}",
	"{fix,bug,bugfix,hotfix}{-,_,.}*",
}

// #endregion rules

// #region tokenizer

// Tokenizer derives a semantic token sequence from a change summary.
type Tokenizer struct {
	rules []DomainRule
}

// NewTokenizer validates every glob in rules and returns a Tokenizer.
func NewTokenizer(rules []DomainRule) (*Tokenizer, error) {
	for _, r := range rules {
		if r.Domain.Kind() != KindDomain {
			return nil, fmt.Errorf("domain rule: %q is not a domain", r.Domain)
		}
		for _, seg := range r.Segments {
			if !doublestar.ValidatePattern(seg) {
				return nil, fmt.Errorf("domain rule %s: bad pattern %q", r.Domain, seg)
			}
		}
	}
	return &Tokenizer{rules: rules}, nil
}

// Tokenize never fails: unmatched input resolves to the General domain.
func (t *Tokenizer) Tokenize(sum change.Summary) Sequence {
	act := t.action(sum)
	seq := Sequence{act}
	seq = append(seq, t.domains(sum)...)
	seq = append(seq, modifiers(sum, act)...)
	return seq
}

// #endregion tokenizer

// #region action

func (t *Tokenizer) action(sum change.Summary) Token {
	added, removed := sum.LinesAdded, sum.LinesRemoved
	total := added + removed
	switch {
	case total == 0:
		return Update
	case anyDirMatches(sum.SortedDirectories(), fixSegments):
		return Fix
	case added == 0:
		return Remove
	case removed == 0:
		return Add
	case removed > 2*added:
		return Remove
	case added > 3*removed:
		return Add
	case abs(added-removed)*10 <= total:
		return Refactor
	}
	return Update
}

// #endregion action

// #region domains

func (t *Tokenizer) domains(sum change.Summary) []Token {
	dirs := sum.SortedDirectories()
	seen := make(map[Token]bool)
	var out []Token
	for _, r := range t.rules {
		if seen[r.Domain] {
			continue
		}
		if r.matches(sum, dirs) {
			seen[r.Domain] = true
			out = append(out, r.Domain)
		}
	}
	if len(out) == 0 {
		return []Token{General}
	}
	return out
}

func (r DomainRule) matches(sum change.Summary, dirs []string) bool {
	switch r.Flag {
	case "has_tests":
		if sum.HasTests {
			return true
		}
	case "has_docs":
		if sum.HasDocs {
			return true
		}
	}
	for _, ext := range r.Extensions {
		if sum.Extensions[strings.ToLower(ext)] > 0 {
			return true
		}
	}
	return anyDirMatches(dirs, r.Segments)
}

// anyDirMatches reports whether a segment pattern matches any path segment of any dir.
func anyDirMatches(dirs, segments []string) bool {
	for _, d := range dirs {
		d = strings.ToLower(strings.Trim(d, "/"))
		for _, seg := range segments {
			if ok, _ := doublestar.Match("**/"+seg, d); ok {
				return true
			}
			if ok, _ := doublestar.Match("**/"+seg+"/**", d); ok {
				return true
			}
		}
	}
	return false
}

// #endregion domains

// #region modifiers

func modifiers(sum change.Summary, act Token) []Token {
	var out []Token
	if act == Fix && sum.LinesTouched() <= 30 {
		out = append(out, EdgeCase)
	}
	if (act == Add || act == Update) && sum.LinesAdded > sum.LinesRemoved {
		out = append(out, Enhancement)
	}
	if act == Fix {
		out = append(out, Bug)
	}
	if sum.Breaking {
		out = append(out, Critical)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// #endregion modifiers
