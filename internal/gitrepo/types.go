package gitrepo

import (
	"errors"
	"time"
)

var (
	// ErrGhostPush is returned when a non-publishable record reaches Push.
	ErrGhostPush = errors.New("ghost saves are never pushed")
	// ErrNothingToCommit is returned when the working tree has no staged changes.
	ErrNothingToCommit = errors.New("nothing to commit")
	// ErrWrongAction is returned when a record is handed to the wrong backend operation.
	ErrWrongAction = errors.New("record action does not match operation")
	// ErrDetachedHead is returned by Push when HEAD is not on a branch.
	ErrDetachedHead = errors.New("HEAD is detached")
)

// GhostRef holds local-only checkpoints. Nothing under refs/ghosts is pushed.
const GhostRef = "refs/ghosts/wip"

// emptyTree is git's well-known empty tree object, the diff base before the first commit.
const emptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// #region config
// Config configures the collector and backend for one repository.
type Config struct {
	Dir    string
	Remote string
	Ignore []string // doublestar patterns relative to the repo root

	TestPatterns []string
	DocPatterns  []string
	Manifests    []string // base names of dependency manifests

	MaxTries       uint
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
}

// DefaultConfig returns defaults for the repository at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:    dir,
		Remote: "origin",
		TestPatterns: []string{
			"**/*_test.go", "**/test/**", "**/tests/**", "**/__tests__/**",
			"**/*.test.*", "**/*.spec.*", "**/test_*.py",
		},
		DocPatterns: []string{"**/*.md", "**/*.rst", "**/*.adoc", "docs/**", "**/docs/**"},
		Manifests: []string{
			"go.mod", "package.json", "Cargo.toml", "pyproject.toml", "requirements.txt",
			"Gemfile", "pom.xml", "build.gradle", "composer.json",
		},
		MaxTries:       3,
		InitialBackoff: 500 * time.Millisecond,
		MaxElapsed:     30 * time.Second,
	}
}

// #endregion config

// #region file-change
// FileChange is one path from git status, with its line counts.
type FileChange struct {
	Path    string
	From    string // source path of a staged rename or copy
	Status  string // porcelain XY code, "??" for untracked
	Added   int
	Removed int
	Binary  bool
}

// Deleted reports whether the file was removed from the working tree or index.
func (f FileChange) Deleted() bool {
	return f.Status[0] == 'D' || f.Status[1] == 'D'
}

// inHead reports whether Path exists in HEAD.
func (f FileChange) inHead() bool {
	switch f.Status[0] {
	case 'A', 'R', 'C', '?':
		return false
	}
	return true
}

// inIndex reports whether Path has an entry in the user's index.
func (f FileChange) inIndex() bool {
	return f.Status[0] != 'D' && f.Status != "??"
}

// commitPaths lists every path a change touches, rename sources included.
func commitPaths(files []FileChange) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
		if f.From != "" {
			paths = append(paths, f.From)
		}
	}
	return paths
}

// #endregion file-change
