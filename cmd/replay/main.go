package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/agit/internal/logging"
	"github.com/danielpatrickdp/agit/internal/replay"
	"github.com/danielpatrickdp/agit/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to agit.db (DB mode)")
	repo := flag.String("repo", ".", "repository whose ticks to replay (DB mode)")
	last := flag.Int("last", 50, "number of most recent ticks to replay (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/agit.db [--repo dir] [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var f *replay.Fixture
	var err error
	if *fixturePath != "" {
		f, err = replay.LoadFixture(*fixturePath)
	} else {
		f, err = fromDB(*dbPath, *repo, *last)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(run(f))
}

// #endregion main

// #region db-extract

func fromDB(dbPath, repo string, last int) (*replay.Fixture, error) {
	abs, err := filepath.Abs(repo)
	if err != nil {
		return nil, err
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	ticks, err := logging.ReadTicks(store.DB(), abs, last)
	if err != nil {
		return nil, err
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("no ticks logged for %s", abs)
	}
	f := replay.FromTicks("ledger replay of "+abs, ticks)
	return &f, nil
}

// #endregion db-extract

// #region output

func run(f *replay.Fixture) int {
	config, err := f.Config.ToReplayConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture config: %v\n", err)
		return 2
	}
	results, ring, err := replay.Replay(f.StartHistory, f.ToTicks(), config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(results, f.ExpectedResults, replay.Summarize(results, ring))
}

// printComparison outputs a comparison table and returns the exit code.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectedResult, sum replay.ReplaySummary) int {
	fmt.Printf("%-12s| %-16s| %-16s| %-7s| %-6s| %s\n", "Tick", "Expected", "Replayed", "Fitness", "Symbol", "Match")
	fmt.Printf("%-12s+%-17s+%-17s+%-8s+%-7s+%s\n",
		"------------", "-----------------", "-----------------", "--------", "-------", "------")

	mismatches := replay.Compare(results, expected)
	bad := make(map[int]bool, len(mismatches))
	for _, m := range mismatches {
		bad[m.Index] = true
	}

	total := min(len(results), len(expected))
	for i := 0; i < total; i++ {
		r := results[i]
		match := "OK"
		if bad[i] {
			match = "DIFF"
		}
		fmt.Printf("%-12s| %-16s| %-16s| %-7.2f| %-6s| %s\n",
			r.TickID, expected[i].Action, r.Action, r.Fitness, r.Symbol, match)
	}

	if len(mismatches) > 0 {
		fmt.Println()
		for _, m := range mismatches {
			fmt.Println("  " + m.String())
		}
	}

	fmt.Printf("\nSummary: %d ticks, %d commit, %d ghost, %d split, %d wait, %d error; history %d\n",
		sum.TotalTicks, sum.Commits, sum.GhostSaves, sum.Splits, sum.Waits, sum.Errors, len(sum.FinalHistory))
	if len(mismatches) > 0 {
		fmt.Printf("%d of %d ticks diverge\n", len(bad), total)
		return 1
	}
	return 0
}

// #endregion output
