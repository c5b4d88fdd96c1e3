package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielpatrickdp/agit/internal/state"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to agit.db")
	repo := flag.String("repo", "", "only records of this repository (default: all)")
	last := flag.Int("last", 20, "show N most recent records")
	recordID := flag.String("record", "", "show single record detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	protoOut := flag.Bool("proto", false, "output as protobuf JSON (google.protobuf.Struct)")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/agit.db [--repo dir] [--last N] [--record id] [--json|--proto]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	format := formatTable
	switch {
	case *protoOut:
		format = formatProto
	case *jsonOut:
		format = formatJSON
	}

	if *recordID != "" {
		err = runDetailMode(store, *recordID, format)
	} else {
		err = runListMode(store, absRepo(*repo), *last, format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type outputFormat int

const (
	formatTable outputFormat = iota
	formatJSON
	formatProto
)

func absRepo(repo string) string {
	if repo == "" {
		return ""
	}
	if abs, err := filepath.Abs(repo); err == nil {
		return abs
	}
	return repo
}

// #endregion main

// #region list-mode

type listRow struct {
	RecordID  string  `json:"record_id"`
	Action    string  `json:"action"`
	Status    string  `json:"status"`
	Fitness   float64 `json:"fitness"`
	Symbol    string  `json:"symbol"`
	Subject   string  `json:"subject"`
	CommitSHA string  `json:"commit_sha,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func runListMode(store *state.Store, repo string, last int, format outputFormat) error {
	records, err := store.ListRecords(repo, last)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no records found")
		return nil
	}

	// Store returns newest first, reverse for chronological
	rows := make([]listRow, len(records))
	for i, r := range records {
		rows[len(records)-1-i] = listRow{
			RecordID:  r.ID,
			Action:    string(r.Action),
			Status:    string(r.Status),
			Fitness:   r.Fitness,
			Symbol:    string(r.Symbol),
			Subject:   r.Subject,
			CommitSHA: r.CommitSHA,
			CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	switch format {
	case formatJSON:
		return printJSON(rows)
	case formatProto:
		return printProto(map[string]any{"records": rows})
	}

	fmt.Printf("%-10s  %-10s  %-9s  %7s  %-6s  %-9s  %s\n",
		"Record", "Action", "Status", "Fitness", "Symbol", "Commit", "Subject")
	fmt.Printf("%-10s+-%-10s+-%-9s+-%7s+-%-6s+-%-9s+-%s\n",
		"----------", "----------", "---------", "-------", "------", "---------", "--------------------")
	for _, r := range rows {
		commit := "—"
		if r.CommitSHA != "" {
			commit = shortID(r.CommitSHA)
		}
		fmt.Printf("%-10s  %-10s  %-9s  %7.2f  %-6s  %-9s  %s\n",
			shortID(r.RecordID), r.Action, r.Status, r.Fitness, r.Symbol, commit, r.Subject)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *state.Store, id string, format outputFormat) error {
	rec, err := store.GetRecord(id)
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		return printJSON(rec)
	case formatProto:
		return printProto(rec)
	}

	fmt.Printf("Record:     %s\n", rec.ID)
	fmt.Printf("Parent:     %s\n", rec.ParentID)
	fmt.Printf("Repo:       %s\n", rec.Repo)
	fmt.Printf("Created:    %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Action:     %s\n", rec.Action)
	fmt.Printf("Status:     %s\n", rec.Status)
	if rec.CommitSHA != "" {
		fmt.Printf("Commit:     %s\n", rec.CommitSHA)
	}
	if rec.Error != "" {
		fmt.Printf("Error:      %s\n", rec.Error)
	}
	fmt.Printf("Fitness:    %.2f\n", rec.Fitness)
	fmt.Printf("Tokens:     %s\n", rec.Tokens.String())
	fmt.Printf("Topology:   %s  %s  %s\n", string(rec.Symbol), rec.Coordinate, rec.Coordinate.Interpret())
	if rec.Fallback {
		fmt.Printf("Locale:     %s (fallback)\n", rec.Locale)
	} else {
		fmt.Printf("Locale:     %s\n", rec.Locale)
	}

	fmt.Printf("\nMessage:\n")
	for _, line := range strings.Split(strings.TrimRight(rec.Message, "\n"), "\n") {
		fmt.Printf("  %s\n", line)
	}
	if rec.Reasoning != "" {
		fmt.Printf("\nReasoning:\n  %s\n", rec.Reasoning)
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printProto converts v through its JSON form into a google.protobuf.Struct.
func printProto(v any) error {
	s, err := toStruct(v)
	if err != nil {
		return err
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal proto: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}
	if c, ok := v.(state.StoredRecord); ok {
		m["symbol"] = string(c.Symbol)
		m["interpretation"] = c.Coordinate.Interpret()
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return s, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
