package record

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
)

// ErrNoTrailer is returned when a message carries no SCL trailer line.
var ErrNoTrailer = errors.New("no SCL trailer")

// Trailer line prefixes.
const (
	sclPrefix     = "SCL: "
	localePrefix  = "Locale: "
	fitnessPrefix = "Fitness: "
)

// #region record

// Record is the durable artifact of a Commit or GhostSave decision. It is a value
// type; nothing mutates it after the pipeline builds it, so a failed commit can be
// retried with the same record.
type Record struct {
	Action     policy.Action       `json:"action"`
	Tokens     token.Sequence      `json:"tokens"`
	Coordinate topology.Coordinate `json:"coordinate"`
	Symbol     rune                `json:"symbol"`
	Locale     string              `json:"locale"`
	Fallback   bool                `json:"fallback,omitempty"`
	Subject    string              `json:"subject"`
	Detail     string              `json:"detail"`
	Fitness    float64             `json:"fitness"`
	Reasoning  string              `json:"reasoning"`
}

// SCL is the language-agnostic form: token glyphs then the topology symbol, dot-joined.
func (r Record) SCL() string {
	return r.Tokens.Glyphs() + "." + string(r.Symbol)
}

// Message renders the commit message stored by the repository backend.
func (r Record) Message() string {
	var b strings.Builder
	b.WriteString(r.Subject)
	if r.Detail != "" {
		b.WriteString("\n\n")
		b.WriteString(r.Detail)
	}
	b.WriteString("\n\n")
	b.WriteString(sclPrefix + r.SCL() + "\n")
	b.WriteString(localePrefix + r.Locale + "\n")
	fmt.Fprintf(&b, "%s%.2f\n", fitnessPrefix, r.Fitness)
	return b.String()
}

// #endregion record

// #region trailer

// Trailer is what can be recovered from a committed message without re-rendering.
type Trailer struct {
	Tokens     token.Sequence
	Coordinate topology.Coordinate
	Symbol     rune
	Subject    string
	Locale     string
	Fitness    float64
	HasFitness bool
}

// ParseTrailer recovers tokens and topology from the SCL line of a message.
// The subject is the first line; hand edits above the trailer do not affect the result.
func ParseTrailer(message string) (Trailer, error) {
	var (
		tr    Trailer
		found bool
		first = true
	)
	sc := bufio.NewScanner(strings.NewReader(message))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			tr.Subject = line
			first = false
		}
		switch {
		case strings.HasPrefix(line, sclPrefix):
			tokens, sym, err := parseSCL(strings.TrimPrefix(line, sclPrefix))
			if err != nil {
				return Trailer{}, err
			}
			coord, err := topology.Decode(sym)
			if err != nil {
				return Trailer{}, fmt.Errorf("parse trailer: %w", err)
			}
			tr.Tokens, tr.Symbol, tr.Coordinate = tokens, sym, coord
			found = true
		case strings.HasPrefix(line, localePrefix):
			tr.Locale = strings.TrimPrefix(line, localePrefix)
		case strings.HasPrefix(line, fitnessPrefix):
			f, err := strconv.ParseFloat(strings.TrimPrefix(line, fitnessPrefix), 64)
			if err != nil {
				return Trailer{}, fmt.Errorf("parse trailer fitness: %w", err)
			}
			tr.Fitness, tr.HasFitness = f, true
		}
	}
	if err := sc.Err(); err != nil {
		return Trailer{}, fmt.Errorf("parse trailer: %w", err)
	}
	if !found {
		return Trailer{}, ErrNoTrailer
	}
	return tr, nil
}

// parseSCL splits "glyph.glyph.symbol" into tokens and the final topology symbol.
func parseSCL(s string) (token.Sequence, rune, error) {
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return nil, 0, fmt.Errorf("parse trailer: malformed SCL %q", s)
	}
	symText := s[i+1:]
	sym, size := utf8.DecodeRuneInString(symText)
	if size == 0 || size != len(symText) {
		return nil, 0, fmt.Errorf("parse trailer: expected one topology symbol, got %q", symText)
	}
	tokens, err := token.ParseGlyphs(s[:i])
	if err != nil {
		return nil, 0, fmt.Errorf("parse trailer: %w", err)
	}
	return tokens, sym, nil
}

// #endregion trailer
