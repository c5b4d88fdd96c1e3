package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/agit/internal/pipeline"
	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

const commitSummary = `{
  "file_count": 5,
  "extensions": {".go": 4, ".md": 1},
  "directories": ["internal/api"],
  "lines_added": 120,
  "lines_removed": 10,
  "has_tests": true,
  "has_docs": true
}`

// execute runs the command tree over an in-memory filesystem whose config points
// the ledger at a path that does not exist.
func execute(t *testing.T, fs afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	cfgPath := "/etc/agit/config.toml"
	if ok, _ := afero.Exists(fs, cfgPath); !ok {
		db := filepath.Join(t.TempDir(), "absent.db")
		if err := afero.WriteFile(fs, cfgPath, []byte(fmt.Sprintf("[driver]\ndb_path = %q\n", db)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	root := NewRootCmd(fs)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"names", []string{"render", "Update,Documentation", "⡁"}, "Update documentation"},
		{"triple", []string{"render", "add,testing,documentation,enhancement", "3,0,1"}, "Add tests and documentation (enhancement)"},
		{"locale", []string{"render", "Update,Documentation", "⡁", "--locale", "es"}, "Actualizar documentación"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, nil, "", tt.args...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if first := strings.SplitN(out, "\n", 2)[0]; first != tt.want {
				t.Fatalf("got %q, want %q", first, tt.want)
			}
		})
	}
}

func TestRenderJSONFallback(t *testing.T) {
	out, err := execute(t, nil, "", "render", "Update,Documentation", "⡁", "--locale", "tlh", "--json")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var res struct {
		Text     string `json:"text"`
		Locale   string `json:"locale"`
		Fallback bool   `json:"fallback"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !res.Fallback || res.Locale != "en" || res.Text != "Update documentation" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"render", "Update", "⡁"},
		{"render", "Update,Documentation", "8,0,0"},
		{"render", "Update,Documentation", "x"},
	} {
		if _, err := execute(t, nil, "", args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestDecodeSymbol(t *testing.T) {
	out, err := execute(t, nil, "", "decode", "⣯", "--json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var got struct {
		Codepoint  string `json:"codepoint"`
		Coordinate struct {
			Kappa, Sigma, Delta int
		} `json:"coordinate"`
		Meaning string `json:"meaning"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got.Codepoint != "U+28EF" || got.Coordinate.Kappa != 7 || got.Coordinate.Sigma != 5 || got.Coordinate.Delta != 3 {
		t.Fatalf("unexpected decode %+v", got)
	}
	if got.Meaning != "maximum deformation, high volatility, critical" {
		t.Fatalf("unexpected meaning %q", got.Meaning)
	}
}

func TestDecodeMessageSubject(t *testing.T) {
	out, err := execute(t, nil, "Add tests and documentation (enhancement)\n", "decode", "--message", "-")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, "Add,") || !strings.Contains(out, "Enhancement") || !strings.Contains(out, "subject") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestDecodeNeedsInput(t *testing.T) {
	if _, err := execute(t, nil, "", "decode"); err == nil {
		t.Fatal("expected error without symbol or message")
	}
}

func TestTable(t *testing.T) {
	out, err := execute(t, nil, "", "table")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	for _, r := range []string{"⠀", "⡁", "⣯", "⣿"} {
		if !strings.Contains(out, r) {
			t.Errorf("table missing %s", r)
		}
	}

	out, err = execute(t, nil, "", "table", "--json")
	if err != nil {
		t.Fatalf("table --json: %v", err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(entries) != 256 {
		t.Fatalf("expected 256 entries, got %d", len(entries))
	}
}

func TestCheckSummary(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/work/change.json", []byte(commitSummary), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, fs, "", "check", "--summary", "/work/change.json", "--json")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var got struct {
		Decision struct {
			Action policy.Action `json:"action"`
		} `json:"decision"`
		Record *struct {
			Subject string `json:"subject"`
			Locale  string `json:"locale"`
		} `json:"record"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Decision.Action != policy.Commit {
		t.Fatalf("expected commit, got %q", got.Decision.Action)
	}
	if got.Record == nil || got.Record.Subject != "Add tests and documentation (enhancement)" {
		t.Fatalf("unexpected record %+v", got.Record)
	}
}

func TestCheckSummaryStdinStyled(t *testing.T) {
	out, err := execute(t, nil, commitSummary, "check", "--summary", "-")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{"Fitness", "Topology", "SCL: "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckInvalidSummary(t *testing.T) {
	_, err := execute(t, nil, `{"file_count": -1}`, "check", "--summary", "-")
	if err == nil {
		t.Fatal("expected invalid summary error")
	}
	if errors.Is(err, pipeline.ErrRecordRejected) {
		t.Fatalf("invalid summary reported as rejection: %v", err)
	}
}

func auditMessage(subject string) string {
	c := topology.Coordinate{Kappa: 3, Sigma: 0, Delta: 1}
	rec := record.Record{
		Action:     policy.Commit,
		Tokens:     token.Sequence{token.Add, token.Testing, token.Documentation, token.Enhancement},
		Coordinate: c,
		Symbol:     topology.Encode(c),
		Locale:     "en",
		Subject:    subject,
		Fitness:    0.91,
	}
	return rec.Message()
}

func TestAudit(t *testing.T) {
	out, err := execute(t, nil, auditMessage("Add tests and documentation (enhancement)"), "audit")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !strings.Contains(out, "unchanged") {
		t.Fatalf("expected unchanged subject:\n%s", out)
	}

	out, err = execute(t, nil, auditMessage("Add tests and docs (enhancement)"), "audit", "--json")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	var rep struct {
		Expected string `json:"expected"`
		Edited   bool   `json:"edited"`
		Distance int    `json:"distance"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if !rep.Edited || rep.Distance == 0 || rep.Expected != "Add tests and documentation (enhancement)" {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestAuditWithoutTrailer(t *testing.T) {
	if _, err := execute(t, nil, "Fix things\n", "audit"); err == nil {
		t.Fatal("expected error for message without trailer")
	}
}

func TestConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	out, err := execute(t, fs, "", "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != "/etc/agit/config.toml" {
		t.Fatalf("unexpected path %q", out)
	}

	if _, err := execute(t, fs, "", "config", "init"); err == nil {
		t.Fatal("init over an existing file should fail without --force")
	}
	if _, err := execute(t, fs, "", "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}

	out, err = execute(t, fs, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"commit_threshold = 0.85", "ghost_threshold = 0.4", "[driver]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, nil, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("agit version dev\n", out); diff != "" {
		t.Fatalf("version mismatch (-want +got):\n%s", diff)
	}
}
