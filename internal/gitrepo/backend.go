package gitrepo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/record"
)

// #region backend

// Backend writes commit records into the repository. Commit and push are
// retried with exponential backoff, always with the same record. Only the
// paths the collector reports are staged, so ignored paths never ride along.
type Backend struct {
	config    Config
	git       gitCmd
	collector *Collector
	logger    *slog.Logger
}

// NewBackend creates a Backend sharing the collector's view of the work tree.
// nil logger uses slog.Default().
func NewBackend(config Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Remote == "" {
		config.Remote = "origin"
	}
	collector, err := NewCollector(config, logger)
	if err != nil {
		return nil, err
	}
	return &Backend{config: config, git: gitCmd{dir: config.Dir}, collector: collector, logger: logger}, nil
}

// Commit stages the collected changes and commits exactly those paths with
// the record's message. Changes already staged on other paths stay staged.
// It returns the new commit SHA.
func (b *Backend) Commit(ctx context.Context, rec record.Record) (string, error) {
	if rec.Action != policy.Commit {
		return "", fmt.Errorf("commit: %w: %s", ErrWrongAction, rec.Action)
	}
	msg := rec.Message()
	sha, err := b.retry(ctx, "commit", func() (string, error) {
		files, err := b.collector.Files(ctx)
		if err != nil {
			return "", err
		}
		if len(files) == 0 {
			return "", backoff.Permanent(ErrNothingToCommit)
		}
		g := b.git
		g.env = literalPathspecs
		if add := b.addable(files, false); len(add) > 0 {
			if _, err := g.run(ctx, append([]string{"add", "-A", "--"}, add...)...); err != nil {
				return "", err
			}
		}
		paths := commitPaths(files)
		if g.ok(ctx, append([]string{"diff", "--cached", "--quiet", "--"}, paths...)...) {
			return "", backoff.Permanent(ErrNothingToCommit)
		}
		g.stdin = strings.NewReader(msg)
		if _, err := g.run(ctx, append([]string{"commit", "--quiet", "--file=-", "--"}, paths...)...); err != nil {
			return "", err
		}
		return b.head(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	b.logger.Info("committed", "sha", short(sha), "subject", rec.Subject, "symbol", string(rec.Symbol))
	return sha, nil
}

// GhostSave snapshots HEAD plus the collected changes, untracked files
// included, into a commit on GhostRef. The user's index, branch and work tree
// are untouched.
func (b *Backend) GhostSave(ctx context.Context, rec record.Record) (string, error) {
	if rec.Action != policy.GhostSave {
		return "", fmt.Errorf("ghost save: %w: %s", ErrWrongAction, rec.Action)
	}
	files, err := b.collector.Files(ctx)
	if err != nil {
		return "", fmt.Errorf("ghost save: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("ghost save: %w", ErrNothingToCommit)
	}

	tmp, err := os.CreateTemp("", "agit-ghost-index-*")
	if err != nil {
		return "", fmt.Errorf("ghost save: %w", err)
	}
	index := tmp.Name()
	tmp.Close()
	os.Remove(index) // git creates it fresh
	defer os.Remove(index)

	g := b.git
	g.env = append([]string{"GIT_INDEX_FILE=" + filepath.Clean(index)}, literalPathspecs...)

	hasHead := b.git.hasHead(ctx)
	if hasHead {
		if _, err := g.run(ctx, "read-tree", "HEAD"); err != nil {
			return "", fmt.Errorf("ghost save: %w", err)
		}
	}
	if add := b.addable(files, true); len(add) > 0 {
		if _, err := g.run(ctx, append([]string{"add", "-A", "--"}, add...)...); err != nil {
			return "", fmt.Errorf("ghost save: %w", err)
		}
	}
	tree, err := g.run(ctx, "write-tree")
	if err != nil {
		return "", fmt.Errorf("ghost save: %w", err)
	}

	args := []string{"commit-tree", strings.TrimSpace(tree)}
	if hasHead {
		args = append(args, "-p", "HEAD")
	}
	if prev, err := b.git.run(ctx, "rev-parse", "--verify", "--quiet", GhostRef); err == nil {
		args = append(args, "-p", strings.TrimSpace(prev))
	}
	g.stdin = strings.NewReader(rec.Message())
	out, err := g.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("ghost save: %w", err)
	}
	sha := strings.TrimSpace(out)
	if _, err := b.git.run(ctx, "update-ref", "-m", "agit: "+rec.Subject, GhostRef, sha); err != nil {
		return "", fmt.Errorf("ghost save: %w", err)
	}
	b.logger.Info("ghost saved", "sha", short(sha), "ref", GhostRef)
	return sha, nil
}

// Push publishes the current branch to the configured remote. GhostSave
// records are refused. A failed push leaves the local commit in place.
func (b *Backend) Push(ctx context.Context, rec record.Record) error {
	if !rec.Action.Publishable() {
		return fmt.Errorf("push: %w", ErrGhostPush)
	}
	branch, err := b.git.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	branch = strings.TrimSpace(branch)
	if branch == "HEAD" {
		return fmt.Errorf("push: %w", ErrDetachedHead)
	}
	_, err = b.retry(ctx, "push", func() (string, error) {
		return b.git.run(ctx, "push", "--quiet", b.config.Remote, branch)
	})
	if err != nil {
		b.logger.Warn("push failed, commit kept locally", "remote", b.config.Remote, "branch", branch, "error", err)
		return fmt.Errorf("push: %w", err)
	}
	b.logger.Info("pushed", "remote", b.config.Remote, "branch", branch)
	return nil
}

// #endregion backend

// #region helpers

// addable returns the paths git add can resolve: present in the work tree or
// in the index being staged into, which is a copy of HEAD when fromHead is set.
// A staged deletion is already in the user's index and needs no add.
func (b *Backend) addable(files []FileChange, fromHead bool) []string {
	var paths []string
	for _, f := range files {
		known := f.inIndex()
		if fromHead {
			known = f.inHead()
		}
		if known || b.exists(f.Path) {
			paths = append(paths, f.Path)
		}
		if fromHead && f.From != "" && f.Status[0] == 'R' {
			paths = append(paths, f.From)
		}
	}
	return paths
}

func (b *Backend) exists(p string) bool {
	_, err := os.Lstat(filepath.Join(b.config.Dir, filepath.FromSlash(p)))
	return err == nil
}

func (b *Backend) head(ctx context.Context) (string, error) {
	out, err := b.git.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (b *Backend) retry(ctx context.Context, op string, fn func() (string, error)) (string, error) {
	eb := backoff.NewExponentialBackOff()
	if b.config.InitialBackoff > 0 {
		eb.InitialInterval = b.config.InitialBackoff
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(eb),
		backoff.WithNotify(func(err error, d time.Duration) {
			b.logger.Warn("retrying git operation", "op", op, "in", d, "error", err)
		}),
	}
	if b.config.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(b.config.MaxTries))
	}
	if b.config.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(b.config.MaxElapsed))
	}
	return backoff.Retry(ctx, fn, opts...)
}

func short(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// #endregion helpers
