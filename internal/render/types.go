package render

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
)

// ErrUnparsed is returned when Parse cannot recover tokens from a text.
var ErrUnparsed = errors.New("text does not match any rendering")

// DefaultAlias names the configured default locale.
const DefaultAlias = "default"

// Wildcard is the fallback template key; every table must define it.
const Wildcard = "*"

// #region table

// Table is one locale's phrase data, decoded from locales/<code>.yaml.
type Table struct {
	Code      string            `yaml:"code"`
	Name      string            `yaml:"name"`
	Actions   map[string]string `yaml:"actions"`
	Domains   map[string]string `yaml:"domains"`
	Modifiers map[string]string `yaml:"modifiers"`
	List      ListFormat        `yaml:"list"`
	Templates map[string]string `yaml:"templates"` // "action/domain", "action/*", "*"
	Suffix    string            `yaml:"suffix"`    // applied when modifiers are present
	Topology  TopologyPhrases   `yaml:"topology"`
}

// ListFormat joins domain and modifier words.
type ListFormat struct {
	Separator string `yaml:"separator"`
	Last      string `yaml:"last"`
}

// TopologyPhrases name the interpretation bands of each axis.
type TopologyPhrases struct {
	Kappa     []string `yaml:"kappa"` // topology.KappaBand order
	Sigma     []string `yaml:"sigma"`
	Delta     []string `yaml:"delta"`
	Separator string   `yaml:"separator"`
}

// Validate checks that every vocabulary entry and band has a phrase.
func (t Table) Validate() error {
	if t.Code == "" {
		return fmt.Errorf("locale table: missing code")
	}
	for _, tok := range token.Actions {
		if t.Actions[tok.Key()] == "" {
			return fmt.Errorf("locale %s: missing action %q", t.Code, tok.Key())
		}
	}
	for _, tok := range token.Domains {
		if t.Domains[tok.Key()] == "" {
			return fmt.Errorf("locale %s: missing domain %q", t.Code, tok.Key())
		}
	}
	for _, tok := range token.Modifiers {
		if t.Modifiers[tok.Key()] == "" {
			return fmt.Errorf("locale %s: missing modifier %q", t.Code, tok.Key())
		}
	}
	if t.Templates[Wildcard] == "" {
		return fmt.Errorf("locale %s: missing %q template", t.Code, Wildcard)
	}
	if n := topology.KappaBand(topology.MaxKappa) + 1; len(t.Topology.Kappa) != n {
		return fmt.Errorf("locale %s: need %d kappa phrases, got %d", t.Code, n, len(t.Topology.Kappa))
	}
	if n := topology.SigmaBand(topology.MaxSigma) + 1; len(t.Topology.Sigma) != n {
		return fmt.Errorf("locale %s: need %d sigma phrases, got %d", t.Code, n, len(t.Topology.Sigma))
	}
	if n := topology.DeltaBand(topology.MaxDelta) + 1; len(t.Topology.Delta) != n {
		return fmt.Errorf("locale %s: need %d delta phrases, got %d", t.Code, n, len(t.Topology.Delta))
	}
	return nil
}

// #endregion table

// #region results

// Result is one rendering. Fallback is set when the requested locale was not
// supported and the default locale was used instead.
type Result struct {
	Text     string `json:"text"`   // subject line
	Detail   string `json:"detail"` // topology interpretation
	Locale   string `json:"locale"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Parsed is a best-effort reverse mapping of rendered text.
type Parsed struct {
	Tokens token.Sequence `json:"tokens"`
	Symbol rune           `json:"symbol,omitempty"` // 0 when recovered from the subject only
	Source string         `json:"source"`           // "trailer" | "subject"
}

// Report compares a stored subject with a fresh rendering of its trailer.
type Report struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Edited   bool   `json:"edited"`
	Distance int    `json:"distance"` // Levenshtein distance in runes
	Diff     string `json:"diff,omitempty"`
}

// #endregion results
