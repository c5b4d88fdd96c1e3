package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danielpatrickdp/agit/internal/change"
	"github.com/danielpatrickdp/agit/internal/gitrepo"
	"github.com/danielpatrickdp/agit/internal/history"
	"github.com/danielpatrickdp/agit/internal/pipeline"
	"github.com/danielpatrickdp/agit/internal/state"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var summaryPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Score pending changes without committing",
		Long: `Collect the pending changes of the work tree, score them and print the
decision, the topology coordinate and the commit message that would be written.
Nothing is committed and history is not updated.

With --summary, a JSON change summary is scored instead of the work tree.

Examples:
  agit check
  agit check --json
  agit check --summary change.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, summaryPath)
		},
	}
	cmd.Flags().StringVar(&summaryPath, "summary", "", "score a JSON change summary (\"-\" for stdin)")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, summaryPath string) error {
	ctx := cmd.Context()
	engine, err := pipeline.New(a.cfg.Engine(), a.logger)
	if err != nil {
		return err
	}

	repo, err := a.repoPath()
	if err != nil {
		return err
	}
	var sum change.Summary
	if summaryPath != "" {
		sum, err = a.readSummary(cmd.InOrStdin(), summaryPath)
	} else {
		if root, rerr := gitrepo.Root(ctx, repo); rerr == nil {
			repo = root
		}
		sum, err = a.collect(cmd, repo)
	}
	if err != nil {
		return err
	}

	ring := history.NewRing(a.cfg.HistoryWindow)
	if scores, err := a.recentFitness(repo); err != nil {
		a.logger.Warn("history unavailable", "error", err)
	} else {
		ring.Restore(scores)
	}

	out, evalErr := engine.Evaluate(sum, ring)
	if evalErr != nil && !errors.Is(evalErr, pipeline.ErrRecordRejected) {
		return evalErr
	}
	w := cmd.OutOrStdout()
	if a.jsonOut {
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		printOutcome(w, sum, out)
	}
	return evalErr
}

func (a *app) collect(cmd *cobra.Command, repo string) (change.Summary, error) {
	gc := gitrepo.DefaultConfig(repo)
	gc.Ignore = a.cfg.Driver.Ignore
	c, err := gitrepo.NewCollector(gc, a.logger)
	if err != nil {
		return change.Summary{}, err
	}
	return c.Collect(cmd.Context())
}

func (a *app) readSummary(stdin io.Reader, path string) (change.Summary, error) {
	data, err := readInput(a.fs, stdin, path)
	if err != nil {
		return change.Summary{}, err
	}
	var sum change.Summary
	if err := json.Unmarshal([]byte(data), &sum); err != nil {
		return change.Summary{}, fmt.Errorf("parse summary: %w", err)
	}
	return sum, sum.Validate()
}

// recentFitness reads history from the ledger without creating it.
func (a *app) recentFitness(repo string) ([]float64, error) {
	path := a.cfg.Driver.DBPath
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	store, err := state.NewStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.RecentFitness(repo, a.cfg.HistoryWindow)
}

// #region output

func printOutcome(w io.Writer, sum change.Summary, out pipeline.Outcome) {
	fmt.Fprintln(w, titleStyle.Render("agit check"))
	fmt.Fprintln(w, row("Files", fmt.Sprintf("%d  +%d -%d", sum.FileCount, sum.LinesAdded, sum.LinesRemoved)))
	fmt.Fprintln(w, row("Fitness", fmt.Sprintf("%.2f", out.Fitness.Score)))
	for _, c := range out.Fitness.Scores {
		fmt.Fprintf(w, "  %-11s %.2f × %.2f  %s\n", c.Name, c.Value, c.Weight, mutedStyle.Render(c.Rationale))
	}
	fmt.Fprintln(w, row("Action", actionBadge(out.Decision.Action)+"  "+out.Decision.Reason))

	if out.Coordinate != nil {
		c := *out.Coordinate
		fmt.Fprintln(w, row("Topology", symbolStyle.Render(string(out.Symbol()))+"  "+c.String()+"  "+mutedStyle.Render(c.Interpret())))
	}
	for _, s := range out.Decision.Suggestions {
		fmt.Fprintln(w, row("Suggest", s))
	}
	for _, h := range out.Decision.SplitHints {
		fmt.Fprintln(w, row("Split", fmt.Sprintf("by %s: %s (%d files)", h.By, h.Key, h.Files)))
	}
	if out.Eval != nil && !out.Eval.Passed {
		fmt.Fprintln(w, row("Rejected", errorStyle.Render(out.Eval.Reason)))
	}
	if out.Record != nil {
		fmt.Fprintln(w, row("Tokens", out.Record.Tokens.String()))
		fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(out.Record.Message(), "\n")))
	}
}

// #endregion output
