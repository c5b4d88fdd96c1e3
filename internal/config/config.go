package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danielpatrickdp/agit/internal/eval"
	"github.com/danielpatrickdp/agit/internal/expert"
	"github.com/danielpatrickdp/agit/internal/fitness"
	"github.com/danielpatrickdp/agit/internal/history"
	"github.com/danielpatrickdp/agit/internal/pipeline"
	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/render"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
	"github.com/spf13/afero"
)

// EnvPath overrides the config file location.
const EnvPath = "AGIT_CONFIG"

// ErrInvalid is returned for configurations that fail validation.
var ErrInvalid = errors.New("invalid configuration")

// #region types

// Config is the on-disk configuration.
type Config struct {
	CommitThreshold       float64            `toml:"commit_threshold"`
	GhostThreshold        float64            `toml:"ghost_threshold"`
	SplitFileCountUpper   int                `toml:"split_file_count_upper"`
	SplitConfidenceCutoff float64            `toml:"split_confidence_cutoff"`
	Weights               fitness.Weights    `toml:"weights"`
	HistoryWindow         int                `toml:"history_window"`
	DriftEpsilon          float64            `toml:"drift_epsilon"`
	DefaultLocale         string             `toml:"default_locale"`
	SupportedLocales      []string           `toml:"supported_locales"`
	Locale                string             `toml:"locale"`
	Domains               []token.DomainRule `toml:"domain,omitempty"`
	Driver                DriverConfig       `toml:"driver"`
	Log                   LogConfig          `toml:"log"`
}

// DriverConfig configures the daemon around the engine.
type DriverConfig struct {
	Interval    time.Duration `toml:"interval"`
	Debounce    time.Duration `toml:"debounce"`
	Watch       bool          `toml:"watch"`
	Ignore      []string      `toml:"ignore"` // doublestar patterns relative to the repo root
	AutoPush    bool          `toml:"auto_push"`
	Remote      string        `toml:"remote"`
	DBPath      string        `toml:"db_path"`
	MetricsAddr string        `toml:"metrics_addr"` // "" disables the metrics endpoint
	GRPCAddr    string        `toml:"grpc_addr"`    // "" disables the health service
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `toml:"level"`  // debug | info | warn | error
	Format string `toml:"format"` // text | json
}

// #endregion types

// #region defaults

// DefaultPath returns the default config file path.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agit", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "agit", "config.toml")
}

// DefaultDBPath returns the default ledger location.
func DefaultDBPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "agit", "agit.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "agit", "agit.db")
}

// Default returns the default configuration.
func Default() *Config {
	pc := policy.DefaultConfig()
	return &Config{
		CommitThreshold:       pc.CommitThreshold,
		GhostThreshold:        pc.GhostThreshold,
		SplitFileCountUpper:   pc.SplitFileCountUpper,
		SplitConfidenceCutoff: pc.SplitConfidenceCutoff,
		Weights:               fitness.DefaultWeights(),
		HistoryWindow:         history.DefaultCapacity,
		DriftEpsilon:          0.05,
		DefaultLocale:         render.DefaultLocale,
		Driver: DriverConfig{
			Interval: 30 * time.Second,
			Debounce: 2 * time.Second,
			Watch:    true,
			Ignore:   []string{".git/**", "**/node_modules/**", "**/vendor/**"},
			Remote:   "origin",
			DBPath:   DefaultDBPath(),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// #endregion defaults

// #region load

// ResolvePath picks the explicit path, then $AGIT_CONFIG, then DefaultPath.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath()
}

// Load reads the TOML file at path over the defaults. A missing file yields the
// defaults. Weights that do not sum to 1 are normalized here, once, with a warning.
func Load(fs afero.Fs, path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path = ResolvePath(path)
	cfg := Default()

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if exists {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			logger.Warn("unknown config keys ignored", "path", path, "keys", strings.Join(keys, ","))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w, changed := cfg.Weights.Normalized(); changed {
		logger.Warn("expert weights do not sum to 1, normalizing",
			"sum", cfg.Weights.Sum(), "quality", w.Quality, "complexity", w.Complexity, "cohesion", w.Cohesion)
		cfg.Weights = w
	}
	return cfg, nil
}

// Validate checks cross-field invariants, ghost_threshold < commit_threshold first of all.
func (c *Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.HistoryWindow < 1 {
		return fmt.Errorf("%w: history_window %d must be positive", ErrInvalid, c.HistoryWindow)
	}
	if c.DriftEpsilon < 0 {
		return fmt.Errorf("%w: drift_epsilon %.4f must not be negative", ErrInvalid, c.DriftEpsilon)
	}
	if strings.TrimSpace(c.DefaultLocale) == "" {
		return fmt.Errorf("%w: default_locale is empty", ErrInvalid)
	}
	if c.Driver.Interval <= 0 {
		return fmt.Errorf("%w: driver.interval must be positive", ErrInvalid)
	}
	if c.Driver.Debounce < 0 {
		return fmt.Errorf("%w: driver.debounce must not be negative", ErrInvalid)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// #endregion load

// #region engine

// Policy returns the decision thresholds.
func (c *Config) Policy() policy.Config {
	pc := policy.DefaultConfig()
	pc.CommitThreshold = c.CommitThreshold
	pc.GhostThreshold = c.GhostThreshold
	pc.SplitFileCountUpper = c.SplitFileCountUpper
	pc.SplitConfidenceCutoff = c.SplitConfidenceCutoff
	return pc
}

// Engine resolves the engine configuration.
func (c *Config) Engine() pipeline.Config {
	pc := c.Policy()
	tc := topology.DefaultConfig(pc.CommitThreshold, pc.GhostThreshold)
	tc.DriftEpsilon = c.DriftEpsilon

	ec := eval.DefaultEvalConfig()
	ec.CommitThreshold, ec.GhostThreshold = pc.CommitThreshold, pc.GhostThreshold

	rules := c.Domains
	if len(rules) == 0 {
		rules = token.DefaultDomainRules()
	}
	return pipeline.Config{
		Expert:           expert.DefaultConfig(),
		Weights:          c.Weights,
		Policy:           pc,
		Topology:         tc,
		DomainRules:      rules,
		Eval:             ec,
		DefaultLocale:    c.DefaultLocale,
		SupportedLocales: c.SupportedLocales,
		Locale:           c.Locale,
	}
}

// #endregion engine

// #region write

// Print writes the configuration as TOML.
func Print(cfg *Config, w io.Writer) error {
	fmt.Fprintln(w, "# agit configuration")
	fmt.Fprintln(w)
	return toml.NewEncoder(w).Encode(cfg)
}

// Write stores the configuration at path, creating parent directories.
func Write(fs afero.Fs, path string, cfg *Config) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	return Print(cfg, f)
}

// #endregion write
