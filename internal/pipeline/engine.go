package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/eval"
	"github.com/danielpatrickdp/agit/internal/expert"
	"github.com/danielpatrickdp/agit/internal/fitness"
	"github.com/danielpatrickdp/agit/internal/history"
	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/render"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
)

// #region engine

// Engine composes the scoring stages into one synchronous evaluation per tick.
// It performs no I/O and is not safe for concurrent use: the policy machine
// carries its phase between calls.
type Engine struct {
	config    Config
	scorer    *expert.Scorer
	fuser     *fitness.Fuser
	machine   *policy.Machine
	tokenizer *token.Tokenizer
	quantizer *topology.Quantizer
	renderer  *render.Renderer
	harness   *eval.EvalHarness
	logger    *slog.Logger
}

// New builds an Engine. nil logger uses slog.Default().
func New(config Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := config.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	tk, err := token.NewTokenizer(config.DomainRules)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	rd, err := render.NewBuiltin(config.DefaultLocale, config.SupportedLocales, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return &Engine{
		config:    config,
		scorer:    expert.NewScorer(config.Expert),
		fuser:     fitness.NewFuser(config.Weights),
		machine:   policy.NewMachine(config.Policy),
		tokenizer: tk,
		quantizer: topology.NewQuantizer(config.Topology),
		renderer:  rd,
		harness:   eval.NewEvalHarness(config.Eval),
		logger:    logger,
	}, nil
}

// Renderer exposes the engine's renderer for audit and CLI use.
func (e *Engine) Renderer() *render.Renderer { return e.renderer }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// #endregion engine

// #region evaluate

// Evaluate scores one change. hist is read for drift and never modified; the caller
// pushes Outcome.Fitness.Score once the tick completes. hist may be nil.
func (e *Engine) Evaluate(sum change.Summary, hist *history.Ring) (Outcome, error) {
	if err := sum.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("evaluate: %w", err)
	}

	fit := e.fuser.Fuse(e.scorer.Score(sum))
	out := Outcome{
		Fitness:  fit,
		Decision: e.machine.Evaluate(sum, fit),
	}
	if sum.FileCount == 0 {
		return out, nil
	}

	var recent []float64
	if hist != nil {
		recent = hist.Values()
	}
	coord := e.quantizer.Coordinate(sum, fit.Score, recent)
	out.Coordinate = &coord

	if !out.Decision.Action.ProducesRecord() {
		return out, nil
	}

	out.Tokens = e.tokenizer.Tokenize(sum)
	symbol := topology.Encode(coord)
	res := e.renderer.Render(out.Tokens, symbol, e.config.Locale)
	rec := record.Record{
		Action:     out.Decision.Action,
		Tokens:     out.Tokens,
		Coordinate: coord,
		Symbol:     symbol,
		Locale:     res.Locale,
		Fallback:   res.Fallback,
		Subject:    res.Text,
		Detail:     res.Detail,
		Fitness:    fit.Score,
		Reasoning:  fit.Reasoning,
	}

	result := e.harness.Run(rec)
	out.Eval = &result
	if !result.Passed {
		e.logger.Error("record failed validation", "reason", result.Reason, "tokens", out.Tokens.String())
		return out, fmt.Errorf("%w: %s", ErrRecordRejected, result.Reason)
	}
	out.Record = &rec
	return out, nil
}

// #endregion evaluate
