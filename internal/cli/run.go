package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/danielpatrickdp/agit/internal/agent"
	"github.com/danielpatrickdp/agit/internal/gitrepo"
	"github.com/danielpatrickdp/agit/internal/logging"
	"github.com/danielpatrickdp/agit/internal/metrics"
	"github.com/danielpatrickdp/agit/internal/pipeline"
	"github.com/danielpatrickdp/agit/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newCommitCmd(a *app) *cobra.Command {
	var push bool

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Run one tick: score, decide and apply",
		Long: `Run a single tick against the repository. A commit decision creates a
commit, a ghost-save decision snapshots the work tree into refs/ghosts/wip,
and split or wait decisions change nothing. The tick is recorded in the ledger.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("push") {
				a.cfg.Driver.AutoPush = push
			}
			ag, cleanup, err := a.buildAgent(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := ag.Tick(cmd.Context(), logging.TriggerManual)
			w := cmd.OutOrStdout()
			if res.Retried && res.Stored != nil {
				fmt.Fprintln(w, row("Retried", actionBadge(res.Stored.Action)+"  "+res.Stored.Subject))
				fmt.Fprintln(w, row("Commit", res.CommitSHA))
				return err
			}
			if res.Outcome.Decision.Action == "" {
				return err
			}
			fmt.Fprintln(w, row("Action", actionBadge(res.Outcome.Decision.Action)+"  "+res.Outcome.Decision.Reason))
			if res.Outcome.Record != nil {
				fmt.Fprintln(w, row("Subject", res.Outcome.Record.Subject))
			}
			if res.CommitSHA != "" {
				fmt.Fprintln(w, row("Commit", res.CommitSHA))
			}
			if res.Pushed {
				fmt.Fprintln(w, row("Pushed", a.cfg.Driver.Remote))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&push, "push", false, "push after a commit decision (overrides driver.auto_push)")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		push     bool
		noWatch  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the commit agent until interrupted",
		Long: `Tick on an interval and after file changes settle. Each tick scores the
work tree and commits, ghost-saves, suggests a split or waits.

Examples:
  agit run
  agit run --interval 1m --push
  agit run --no-watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("interval") {
				a.cfg.Driver.Interval = interval
			}
			if cmd.Flags().Changed("push") {
				a.cfg.Driver.AutoPush = push
			}
			if noWatch {
				a.cfg.Driver.Watch = false
			}

			registry := prometheus.NewRegistry()
			ag, cleanup, err := a.buildAgent(cmd, registry)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return ag.Run(ctx, registry)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "tick interval (overrides driver.interval)")
	cmd.Flags().BoolVar(&push, "push", false, "push after commits (overrides driver.auto_push)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "tick on the interval only")
	return cmd
}

// buildAgent wires the engine, repository, ledger and metrics for one repo.
func (a *app) buildAgent(cmd *cobra.Command, registry *prometheus.Registry) (*agent.Agent, func(), error) {
	repo, err := a.repoPath()
	if err != nil {
		return nil, nil, err
	}
	repo, err = gitrepo.Root(cmd.Context(), repo)
	if err != nil {
		return nil, nil, fmt.Errorf("%s is not a git work tree: %w", a.repo, err)
	}

	engine, err := pipeline.New(a.cfg.Engine(), a.logger)
	if err != nil {
		return nil, nil, err
	}

	d := a.cfg.Driver
	gc := gitrepo.DefaultConfig(repo)
	gc.Ignore = d.Ignore
	gc.Remote = d.Remote
	collector, err := gitrepo.NewCollector(gc, a.logger)
	if err != nil {
		return nil, nil, err
	}
	backend, err := gitrepo.NewBackend(gc, a.logger)
	if err != nil {
		return nil, nil, err
	}

	var store *state.Store
	cleanup := func() {}
	if d.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(d.DBPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create ledger dir: %w", err)
		}
		store, err = state.NewStore(d.DBPath)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { store.Close() }
	}

	ac := agent.Config{
		Repo:          repo,
		Interval:      d.Interval,
		Debounce:      d.Debounce,
		Watch:         d.Watch,
		Ignore:        d.Ignore,
		AutoPush:      d.AutoPush,
		HistoryWindow: a.cfg.HistoryWindow,
		MetricsAddr:   d.MetricsAddr,
		GRPCAddr:      d.GRPCAddr,
	}
	ag, err := agent.New(ac, engine, collector, backend, store, metrics.NewProvider(registry), a.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ag, cleanup, nil
}
