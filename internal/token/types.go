package token

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSequence is returned for sequences that break the action/domain/modifier shape.
var ErrInvalidSequence = errors.New("invalid token sequence")

// #region vocabulary

// Kind is the slot a token occupies in a sequence.
type Kind string

const (
	KindAction   Kind = "action"
	KindDomain   Kind = "domain"
	KindModifier Kind = "modifier"
)

// Token is a member of the closed semantic vocabulary.
type Token string

// Actions
const (
	Fix      Token = "Fix"
	Add      Token = "Add"
	Remove   Token = "Remove"
	Update   Token = "Update"
	Refactor Token = "Refactor"
)

// Domains
const (
	Auth          Token = "Auth"
	Security      Token = "Security"
	Performance   Token = "Performance"
	Testing       Token = "Testing"
	Documentation Token = "Documentation"
	Feature       Token = "Feature"
	General       Token = "General"
)

// Modifiers
const (
	EdgeCase    Token = "EdgeCase"
	Enhancement Token = "Enhancement"
	Bug         Token = "Bug"
	Critical    Token = "Critical"
)

type entry struct {
	kind  Kind
	glyph string
}

// vocabulary maps each token to its kind and braille glyph. Every glyph is at least
// two cells wide so it can never be mistaken for a single topology symbol.
var vocabulary = map[Token]entry{
	Fix:      {KindAction, "⠋⠊⠭"},
	Add:      {KindAction, "⠁⠙⠙"},
	Remove:   {KindAction, "⠗⠑⠍"},
	Update:   {KindAction, "⠥⠏⠙"},
	Refactor: {KindAction, "⠗⠑⠋"},

	Auth:          {KindDomain, "⠁⠥⠞⠓"},
	Security:      {KindDomain, "⠎⠑⠉"},
	Performance:   {KindDomain, "⠏⠑⠗⠋"},
	Testing:       {KindDomain, "⠞⠑⠎⠞"},
	Documentation: {KindDomain, "⠙⠕⠉"},
	Feature:       {KindDomain, "⠋⠑⠁⠞"},
	General:       {KindDomain, "⠛⠑⠝"},

	EdgeCase:    {KindModifier, "⠑⠙⠛⠑"},
	Enhancement: {KindModifier, "⠑⠝⠓"},
	Bug:         {KindModifier, "⠃⠥⠛"},
	Critical:    {KindModifier, "⠉⠗⠊⠞"},
}

var byGlyph = func() map[string]Token {
	m := make(map[string]Token, len(vocabulary))
	for tok, e := range vocabulary {
		m[e.glyph] = tok
	}
	return m
}()

// Actions, Domains and Modifiers list the vocabulary in canonical order.
var (
	Actions   = []Token{Fix, Add, Remove, Update, Refactor}
	Domains   = []Token{Auth, Security, Performance, Testing, Documentation, Feature, General}
	Modifiers = []Token{EdgeCase, Enhancement, Bug, Critical}
)

// Kind returns the token's kind, or "" for tokens outside the vocabulary.
func (t Token) Kind() Kind {
	return vocabulary[t].kind
}

// Glyph returns the braille form of the token.
func (t Token) Glyph() string {
	return vocabulary[t].glyph
}

// Valid reports whether the token is in the vocabulary.
func (t Token) Valid() bool {
	_, ok := vocabulary[t]
	return ok
}

// Key is the lower snake form used by locale tables ("edge_case").
func (t Token) Key() string {
	var b strings.Builder
	for i, r := range string(t) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FromGlyph looks up a token by its braille form.
func FromGlyph(g string) (Token, bool) {
	t, ok := byGlyph[g]
	return t, ok
}

// Parse looks up a token by name, case-insensitively; "edge_case" is accepted too.
func Parse(name string) (Token, bool) {
	n := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	for tok := range vocabulary {
		if strings.ToLower(string(tok)) == n {
			return tok, true
		}
	}
	return "", false
}

// #endregion vocabulary

// #region sequence

// Sequence is one action token, one or more domain tokens, then modifiers.
type Sequence []Token

// Validate checks the shape of the sequence.
func (s Sequence) Validate() error {
	if len(s) < 2 {
		return fmt.Errorf("%w: need an action and a domain, got %d tokens", ErrInvalidSequence, len(s))
	}
	if s[0].Kind() != KindAction {
		return fmt.Errorf("%w: first token %q is not an action", ErrInvalidSequence, s[0])
	}
	stage := KindDomain
	for i, t := range s[1:] {
		switch t.Kind() {
		case KindDomain:
			if stage != KindDomain {
				return fmt.Errorf("%w: domain %q after modifiers", ErrInvalidSequence, t)
			}
		case KindModifier:
			if i == 0 {
				return fmt.Errorf("%w: modifier %q before any domain", ErrInvalidSequence, t)
			}
			stage = KindModifier
		case KindAction:
			return fmt.Errorf("%w: second action %q", ErrInvalidSequence, t)
		default:
			return fmt.Errorf("%w: unknown token %q", ErrInvalidSequence, t)
		}
	}
	return nil
}

// Action returns the action token, or "" for an empty sequence.
func (s Sequence) Action() Token {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Domains returns the domain tokens.
func (s Sequence) Domains() []Token {
	return s.ofKind(KindDomain)
}

// Modifiers returns the modifier tokens.
func (s Sequence) Modifiers() []Token {
	return s.ofKind(KindModifier)
}

func (s Sequence) ofKind(k Kind) []Token {
	var out []Token
	for _, t := range s {
		if t.Kind() == k {
			out = append(out, t)
		}
	}
	return out
}

// Glyphs joins the braille forms with ".".
func (s Sequence) Glyphs() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.Glyph()
	}
	return strings.Join(parts, ".")
}

// String joins token names with ",".
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

// ParseGlyphs inverts Glyphs. Unknown cells are an error.
func ParseGlyphs(text string) (Sequence, error) {
	var seq Sequence
	for _, part := range strings.Split(strings.TrimSpace(text), ".") {
		tok, ok := FromGlyph(part)
		if !ok {
			return nil, fmt.Errorf("%w: unknown glyph %q", ErrInvalidSequence, part)
		}
		seq = append(seq, tok)
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// ParseNames parses a comma separated list of token names ("Update,Documentation").
func ParseNames(text string) (Sequence, error) {
	var seq Sequence
	for _, part := range strings.Split(text, ",") {
		tok, ok := Parse(part)
		if !ok {
			return nil, fmt.Errorf("%w: unknown token %q", ErrInvalidSequence, part)
		}
		seq = append(seq, tok)
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// #endregion sequence
