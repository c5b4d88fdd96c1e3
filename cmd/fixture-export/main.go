package main

import (
	"encoding/json"
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
	dbPath := flag.String("db", "", "path to agit.db")
	repo := flag.String("repo", ".", "repository whose ticks to export")
	last := flag.Int("last", 10, "number of most recent ticks to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/agit.db --out path/to/fixture.json [--repo dir] [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *repo, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, repo string, last int, outPath string) error {
	abs, err := filepath.Abs(repo)
	if err != nil {
		return err
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	ticks, err := logging.ReadTicks(store.DB(), abs, last)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return fmt.Errorf("no ticks logged for %s", abs)
	}
	fmt.Printf("Found %d ticks\n", len(ticks))

	fixture := replay.FromTicks(fmt.Sprintf("Ledger export: %d ticks from %s", len(ticks), abs), ticks)
	return writeFixture(fixture, outPath)
}

// #endregion extract

// #region output

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d ticks)\n", outPath, len(data), len(fixture.Ticks))
	return nil
}

// #endregion output
