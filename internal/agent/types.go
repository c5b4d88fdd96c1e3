package agent

import (
	"context"
	"time"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/history"
	"github.com/danielpatrickdp/agit/internal/pipeline"
	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/state"
)

// HealthService is the gRPC health service name reported by the daemon.
const HealthService = "agit.Agent"

// #region interfaces
// Collector summarizes the pending changes of a repository.
type Collector interface {
	Collect(ctx context.Context) (change.Summary, error)
}

// Backend applies records to a repository.
type Backend interface {
	Commit(ctx context.Context, rec record.Record) (string, error)
	GhostSave(ctx context.Context, rec record.Record) (string, error)
	Push(ctx context.Context, rec record.Record) error
}

// #endregion interfaces

// #region config
// Config configures the daemon loop.
type Config struct {
	Repo          string // work tree root; also the ledger key
	Interval      time.Duration
	Debounce      time.Duration
	Watch         bool
	Ignore        []string
	AutoPush      bool
	HistoryWindow int
	MetricsAddr   string // "" disables the metrics endpoint
	GRPCAddr      string // "" disables the health service
}

// DefaultConfig returns defaults for the repository at repo.
func DefaultConfig(repo string) Config {
	return Config{
		Repo:          repo,
		Interval:      30 * time.Second,
		Debounce:      2 * time.Second,
		Watch:         true,
		HistoryWindow: history.DefaultCapacity,
	}
}

// #endregion config

// #region tick-result
// TickResult is everything one tick did.
type TickResult struct {
	TickID    string
	Trigger   string
	Summary   change.Summary
	Outcome   pipeline.Outcome
	Stored    *state.StoredRecord // set when a record was persisted
	CommitSHA string
	Pushed    bool
	Retried   bool // the tick applied an earlier failed record instead of evaluating
	Duration  time.Duration
}

// #endregion tick-result
