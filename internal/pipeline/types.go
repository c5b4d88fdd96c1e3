package pipeline

import (
	"errors"

	"github.com/danielpatrickdp/agit/internal/eval"
	"github.com/danielpatrickdp/agit/internal/expert"
	"github.com/danielpatrickdp/agit/internal/fitness"
	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/render"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
)

// ErrRecordRejected is returned when a built record fails validation.
var ErrRecordRejected = errors.New("commit record rejected")

// #region config
// Config is the resolved configuration of one Engine.
type Config struct {
	Expert      expert.Config
	Weights     fitness.Weights // already normalized
	Policy      policy.Config
	Topology    topology.Config
	DomainRules []token.DomainRule
	Eval        eval.EvalConfig

	DefaultLocale    string
	SupportedLocales []string // empty keeps every built-in locale
	Locale           string   // rendering locale; "" is the default
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	pc := policy.DefaultConfig()
	ec := eval.DefaultEvalConfig()
	ec.CommitThreshold, ec.GhostThreshold = pc.CommitThreshold, pc.GhostThreshold
	return Config{
		Expert:        expert.DefaultConfig(),
		Weights:       fitness.DefaultWeights(),
		Policy:        pc,
		Topology:      topology.DefaultConfig(pc.CommitThreshold, pc.GhostThreshold),
		DomainRules:   token.DefaultDomainRules(),
		Eval:          ec,
		DefaultLocale: render.DefaultLocale,
	}
}

// #endregion config

// #region outcome
// Outcome is everything one tick produced. Tokens, Coordinate and Record are only
// set when the decision calls for them.
type Outcome struct {
	Fitness    fitness.Result       `json:"fitness"`
	Decision   policy.Decision      `json:"decision"`
	Tokens     token.Sequence       `json:"tokens,omitempty"`
	Coordinate *topology.Coordinate `json:"coordinate,omitempty"`
	Record     *record.Record       `json:"record,omitempty"`
	Eval       *eval.EvalResult     `json:"eval,omitempty"`
}

// Symbol returns the topology symbol, or 0 when no coordinate was computed.
func (o Outcome) Symbol() rune {
	if o.Coordinate == nil {
		return 0
	}
	return topology.Encode(*o.Coordinate)
}

// #endregion outcome
