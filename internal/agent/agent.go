package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielpatrickdp/agit/internal/gitrepo"
	"github.com/danielpatrickdp/agit/internal/history"
	"github.com/danielpatrickdp/agit/internal/logging"
	"github.com/danielpatrickdp/agit/internal/metrics"
	"github.com/danielpatrickdp/agit/internal/pipeline"
	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/state"
	"github.com/google/uuid"
)

// #region agent

// Agent drives the engine against one repository. It owns the fitness history:
// ticks are serialized and each non-empty change appends exactly once.
type Agent struct {
	config    Config
	engine    *pipeline.Engine
	collector Collector
	backend   Backend
	store     *state.Store // nil runs without a ledger
	metrics   *metrics.Provider
	logger    *slog.Logger

	mu     sync.Mutex
	ring   *history.Ring
	failed *record.Record // awaiting retry when running without a ledger
}

// New creates an Agent and restores its history from the ledger. store and
// provider may be nil. nil logger uses slog.Default().
func New(config Config, engine *pipeline.Engine, collector Collector, backend Backend,
	store *state.Store, provider *metrics.Provider, logger *slog.Logger) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.HistoryWindow < 1 {
		config.HistoryWindow = history.DefaultCapacity
	}
	a := &Agent{
		config:    config,
		engine:    engine,
		collector: collector,
		backend:   backend,
		store:     store,
		metrics:   provider,
		logger:    logger.With("repo", config.Repo),
		ring:      history.NewRing(config.HistoryWindow),
	}
	if store != nil {
		scores, err := store.RecentFitness(config.Repo, config.HistoryWindow)
		if err != nil {
			return nil, fmt.Errorf("agent: restore history: %w", err)
		}
		a.ring.Restore(scores)
		a.logger.Debug("history restored", "entries", a.ring.Len())
	}
	return a, nil
}

// History returns a copy of the fitness history, oldest first.
func (a *Agent) History() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ring.Values()
}

// #endregion agent

// #region tick

// Tick collects, evaluates and applies one change. A failed collection skips
// the tick and leaves history unchanged. Backend failures are recorded in the
// ledger and returned; history still counts the evaluated change.
//
// A record the backend failed on is retried unchanged by the next tick before
// anything new is evaluated. A successful retry is the whole tick.
func (a *Agent) Tick(ctx context.Context, trigger string) (res TickResult, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	res = TickResult{TickID: uuid.New().String(), Trigger: trigger}
	defer func() {
		res.Duration = time.Since(start)
		a.metrics.ObserveTick(res.Duration.Seconds())
	}()

	if err := a.retryPending(ctx, &res); err != nil || res.Retried {
		if err != nil {
			err = fmt.Errorf("tick: %w", err)
		}
		return res, err
	}

	sum, err := a.collector.Collect(ctx)
	if err != nil {
		a.metrics.IncrementCollectError()
		a.logger.Warn("collect failed, skipping tick", "trigger", trigger, "error", err)
		return res, fmt.Errorf("tick: %w", err)
	}
	res.Summary = sum

	before := a.ring.Values()
	out, evalErr := a.engine.Evaluate(sum, a.ring)
	res.Outcome = out
	if evalErr != nil && !errors.Is(evalErr, pipeline.ErrRecordRejected) {
		a.logger.Warn("evaluate failed, skipping tick", "error", evalErr)
		return res, fmt.Errorf("tick: %w", evalErr)
	}

	if sum.FileCount > 0 {
		a.appendHistory(out.Fitness.Score)
	}
	a.metrics.IncrementTick(string(out.Decision.Action))

	var applyErr error
	if evalErr == nil && out.Record != nil {
		applyErr = a.apply(ctx, &res, *out.Record)
	}

	a.logTick(res, before, evalErr)
	a.logger.Info("tick",
		"trigger", trigger,
		"action", out.Decision.Action,
		"fitness", out.Fitness.Score,
		"files", sum.FileCount,
		"reason", out.Decision.Reason,
	)
	if evalErr != nil {
		return res, fmt.Errorf("tick: %w", evalErr)
	}
	return res, applyErr
}

// apply persists a new record and hands it to the backend.
func (a *Agent) apply(ctx context.Context, res *TickResult, rec record.Record) error {
	var stored *state.StoredRecord
	if a.store != nil {
		sr, err := a.store.SaveRecord(a.config.Repo, rec)
		if err != nil {
			return fmt.Errorf("save record: %w", err)
		}
		stored = &sr
		res.Stored = stored
	}
	return a.deliver(ctx, res, rec, stored)
}

// retryPending reapplies records an earlier tick could not hand to git,
// oldest first, and stops at the first one that lands. A record whose changes
// are gone is marked superseded and skipped. Any other failure ends the tick.
func (a *Agent) retryPending(ctx context.Context, res *TickResult) error {
	var pending []state.StoredRecord
	if a.store != nil {
		var err error
		if pending, err = a.store.Pending(a.config.Repo); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	} else if a.failed != nil {
		pending = []state.StoredRecord{{Record: *a.failed}}
	}

	for i := range pending {
		var stored *state.StoredRecord
		if a.store != nil {
			stored = &pending[i]
		}
		rec := pending[i].Record
		a.logger.Info("retrying record", "id", pending[i].ID, "subject", rec.Subject, "previous_error", pending[i].Error)

		err := a.deliver(ctx, res, rec, stored)
		if res.CommitSHA != "" {
			res.Retried, res.Stored = true, stored
			return err
		}
		if errors.Is(err, gitrepo.ErrNothingToCommit) {
			a.logger.Info("record superseded", "id", pending[i].ID, "subject", rec.Subject)
			continue
		}
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// deliver hands the record to the backend and tracks the outcome.
func (a *Agent) deliver(ctx context.Context, res *TickResult, rec record.Record, stored *state.StoredRecord) error {
	op := "commit"
	commit := a.backend.Commit
	if rec.Action == policy.GhostSave {
		op, commit = "ghost_save", a.backend.GhostSave
	}
	sha, err := commit(ctx, rec)
	if errors.Is(err, gitrepo.ErrNothingToCommit) {
		a.failed = nil
		a.mark(stored, state.StatusSuperseded, "", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		a.metrics.IncrementBackendError(op)
		a.logger.Error("backend failed", "op", op, "error", err)
		if a.store == nil {
			a.failed = &rec
		}
		a.mark(stored, state.StatusFailed, "", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	a.failed = nil
	res.CommitSHA = sha
	status := state.StatusCommitted
	if rec.Action == policy.GhostSave {
		status = state.StatusGhosted
	}
	a.mark(stored, status, sha, "")

	if !a.config.AutoPush || !rec.Action.Publishable() {
		return nil
	}
	if err := a.backend.Push(ctx, rec); err != nil {
		a.metrics.IncrementBackendError("push")
		// the local commit stands; the error is kept for inspection
		a.mark(stored, state.StatusCommitted, sha, err.Error())
		return fmt.Errorf("push: %w", err)
	}
	res.Pushed = true
	a.mark(stored, state.StatusPushed, sha, "")
	return nil
}

func (a *Agent) mark(stored *state.StoredRecord, status state.Status, sha, errText string) {
	if stored == nil {
		return
	}
	if err := a.store.MarkStatus(stored.ID, status, sha, errText); err != nil {
		a.logger.Error("mark status", "id", stored.ID, "status", status, "error", err)
		return
	}
	stored.Status, stored.CommitSHA, stored.Error = status, sha, errText
}

func (a *Agent) appendHistory(score float64) {
	a.ring.Push(score)
	a.metrics.ObserveFitness(score, a.ring.Len())
	if a.store == nil {
		return
	}
	if err := a.store.AppendFitness(a.config.Repo, score); err != nil {
		a.logger.Error("persist fitness", "error", err)
		return
	}
	if _, err := a.store.PruneFitness(a.config.Repo, a.ring.Cap()); err != nil {
		a.logger.Error("prune fitness", "error", err)
	}
}

func (a *Agent) logTick(res TickResult, before []float64, evalErr error) {
	if a.store == nil {
		return
	}
	out := res.Outcome
	tick := logging.TickRecord{
		TickID:     res.TickID,
		Summary:    res.Summary,
		Fitness:    out.Fitness.Score,
		Scores:     out.Fitness.Scores,
		History:    before,
		Thresholds: a.engine.Config().Policy,
		Action:     out.Decision.Action,
		Reason:     out.Decision.Reason,
	}
	if evalErr != nil {
		tick.Reason = evalErr.Error()
	}
	if out.Coordinate != nil {
		tick.Symbol = string(out.Symbol())
	}
	if out.Record != nil {
		tick.Tokens = out.Record.Tokens.String()
		tick.Subject = out.Record.Subject
	}
	var recordID string
	if res.Stored != nil {
		recordID = res.Stored.ID
	}
	if err := logging.LogTick(a.store.DB(), a.config.Repo, res.Trigger, recordID, tick); err != nil {
		a.logger.Error("log tick", "error", err)
	}
}

// #endregion tick
