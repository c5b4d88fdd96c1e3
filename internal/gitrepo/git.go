package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// literalPathspecs makes git treat path arguments as plain paths, not globs.
var literalPathspecs = []string{"GIT_LITERAL_PATHSPECS=1"}

// gitCmd runs git in one working directory.
type gitCmd struct {
	dir   string
	env   []string
	stdin io.Reader
}

// run executes git and returns stdout. Failures carry git's stderr.
func (g gitCmd) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	if len(g.env) > 0 {
		cmd.Env = append(os.Environ(), g.env...)
	}
	cmd.Stdin = g.stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// ok runs git and reports whether it exited zero.
func (g gitCmd) ok(ctx context.Context, args ...string) bool {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	if len(g.env) > 0 {
		cmd.Env = append(os.Environ(), g.env...)
	}
	return cmd.Run() == nil
}

// hasHead reports whether the repository has at least one commit.
func (g gitCmd) hasHead(ctx context.Context) bool {
	return g.ok(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
}

// IsRepository reports whether dir is inside a git work tree.
func IsRepository(ctx context.Context, dir string) bool {
	out, err := gitCmd{dir: dir}.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Root returns the top-level directory of the work tree containing dir.
func Root(ctx context.Context, dir string) (string, error) {
	out, err := gitCmd{dir: dir}.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
