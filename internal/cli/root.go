package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/danielpatrickdp/agit/internal/config"
	"github.com/danielpatrickdp/agit/internal/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// app carries the flags and resolved configuration shared by every command.
type app struct {
	fs      afero.Fs
	cfgFile string
	repo    string
	jsonOut bool

	cfg    *config.Config
	logger *slog.Logger
}

// Execute runs the agit command line.
func Execute() error {
	return NewRootCmd(afero.NewOsFs()).Execute()
}

// NewRootCmd builds the command tree over fs.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}

	root := &cobra.Command{
		Use:   "agit",
		Short: "Autonomous commit agent: score changes, decide, commit",
		Long: `agit scores the pending changes of a git work tree, decides whether to
commit, ghost-save, suggest a split or wait, and writes commit messages that
carry a language-agnostic semantic trailer.

Examples:
  agit check                 # Score the work tree, change nothing
  agit commit                # Run one tick against the repository
  agit run                   # Daemon: tick on an interval and on file changes
  agit render add,testing ⡃  # Render tokens and a topology symbol
  agit table                 # Print the 256-symbol topology table`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// config init and path must work when the file is broken
			if cmd.Parent() != nil && cmd.Parent().Name() == "config" && cmd.Name() != "show" {
				a.cfg = config.Default()
			} else {
				cfg, err := config.Load(a.fs, a.cfgFile, slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)))
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			logger, err := logging.NewLogger(cmd.ErrOrStderr(), a.cfg.Log.Level, a.cfg.Log.Format)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default $AGIT_CONFIG or ~/.config/agit/config.toml)")
	root.PersistentFlags().StringVarP(&a.repo, "repo", "C", ".", "repository work tree")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of styled text")

	root.AddCommand(
		// Evaluation
		newCheckCmd(a),
		newCommitCmd(a),
		newRunCmd(a),

		// Codec
		newRenderCmd(a),
		newDecodeCmd(a),
		newTableCmd(a),
		newAuditCmd(a),

		// Utilities
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agit version %s\n", Version)
		},
	}
}

// repoPath returns the absolute work tree path from --repo.
func (a *app) repoPath() (string, error) {
	p, err := filepath.Abs(a.repo)
	if err != nil {
		return "", fmt.Errorf("resolve repo: %w", err)
	}
	return p, nil
}
