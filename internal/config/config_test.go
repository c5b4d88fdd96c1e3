package config

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/spf13/afero"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg, err := Load(fs, "/etc/agit/config.toml", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CommitThreshold != 0.85 || cfg.GhostThreshold != 0.4 {
		t.Fatalf("unexpected thresholds %v %v", cfg.CommitThreshold, cfg.GhostThreshold)
	}
	if cfg.HistoryWindow != 100 || cfg.DefaultLocale != "en" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/c.toml", `
commit_threshold = 0.9
ghost_threshold = 0.5
history_window = 20
locale = "es"
supported_locales = ["en", "es"]

[driver]
interval = "1m"
auto_push = true

[[domain]]
domain = "Auth"
segments = ["identity*"]
`)
	cfg, err := Load(fs, "/c.toml", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CommitThreshold != 0.9 || cfg.GhostThreshold != 0.5 || cfg.HistoryWindow != 20 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Driver.Interval != time.Minute || !cfg.Driver.AutoPush {
		t.Fatalf("driver overrides not applied: %+v", cfg.Driver)
	}
	if cfg.Driver.Remote != "origin" {
		t.Fatalf("expected default remote to survive, got %q", cfg.Driver.Remote)
	}
	if len(cfg.Domains) != 1 || cfg.Domains[0].Domain != token.Auth {
		t.Fatalf("unexpected domain rules %+v", cfg.Domains)
	}

	ec := cfg.Engine()
	if ec.Policy.CommitThreshold != 0.9 || ec.Topology.GhostThreshold != 0.5 || ec.Eval.CommitThreshold != 0.9 {
		t.Fatalf("engine config not derived from file: %+v", ec)
	}
	if ec.Locale != "es" || len(ec.DomainRules) != 1 {
		t.Fatalf("unexpected engine config %+v", ec)
	}
}

func TestLoadRejectsGhostAboveCommit(t *testing.T) {
	for _, src := range []string{
		"commit_threshold = 0.5\nghost_threshold = 0.6\n",
		"commit_threshold = 0.5\nghost_threshold = 0.5\n",
	} {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/c.toml", src)
		_, err := Load(fs, "/c.toml", nil)
		if !errors.Is(err, ErrInvalid) || !errors.Is(err, policy.ErrInvalidConfig) {
			t.Fatalf("expected invalid config for %q, got %v", src, err)
		}
	}
}

func TestLoadNormalizesWeightsOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/c.toml", "[weights]\nquality = 2\ncomplexity = 1\ncohesion = 1\n")
	var buf bytes.Buffer
	cfg, err := Load(fs, "/c.toml", slog.New(slog.NewTextHandler(&buf, nil)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if math.Abs(cfg.Weights.Sum()-1) > 1e-9 || cfg.Weights.Quality != 0.5 {
		t.Fatalf("weights not normalized: %+v", cfg.Weights)
	}
	if !strings.Contains(buf.String(), "normalizing") {
		t.Fatalf("expected normalization warning, got %q", buf.String())
	}
}

func TestLoadRejectsNegativeWeight(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/c.toml", "[weights]\nquality = -1\ncomplexity = 1\ncohesion = 1\n")
	if _, err := Load(fs, "/c.toml", nil); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadWarnsOnUnknownKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/c.toml", "bogus = 1\n")
	var buf bytes.Buffer
	if _, err := Load(fs, "/c.toml", slog.New(slog.NewTextHandler(&buf, nil))); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(buf.String(), "bogus") {
		t.Fatalf("expected warning naming the key, got %q", buf.String())
	}
}

func TestLoadParseError(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/c.toml", "commit_threshold = = 1\n")
	if _, err := Load(fs, "/c.toml", nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolvePathEnv(t *testing.T) {
	t.Setenv(EnvPath, "/from/env.toml")
	if got := ResolvePath(""); got != "/from/env.toml" {
		t.Fatalf("expected env path, got %q", got)
	}
	if got := ResolvePath("/explicit.toml"); got != "/explicit.toml" {
		t.Fatalf("expected explicit path, got %q", got)
	}
}

func TestDefaultPathXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultPath(); got != "/xdg/agit/config.toml" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestWriteThenLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := Default()
	cfg.CommitThreshold = 0.8
	cfg.Locale = "fr"
	if err := Write(fs, "/home/u/.config/agit/config.toml", cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(fs, "/home/u/.config/agit/config.toml", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CommitThreshold != 0.8 || got.Locale != "fr" || got.Driver.Interval != cfg.Driver.Interval {
		t.Fatalf("round trip lost fields: %+v", got)
	}
}
