package gitrepo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/danielpatrickdp/agit/internal/change"
)

// markers in added lines that flag a change.
var (
	todoMarkers     = []string{"TODO", "FIXME", "XXX"}
	breakingMarkers = []string{"BREAKING CHANGE", "BREAKING:"}
)

// #region collector

// Collector summarizes the pending changes of a work tree. It reads the
// repository and never writes to it.
type Collector struct {
	config Config
	git    gitCmd
	logger *slog.Logger
}

// NewCollector validates the configured patterns. nil logger uses slog.Default().
func NewCollector(config Config, logger *slog.Logger) (*Collector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, group := range [][]string{config.Ignore, config.TestPatterns, config.DocPatterns} {
		for _, p := range group {
			if !doublestar.ValidatePattern(p) {
				return nil, fmt.Errorf("collector: bad pattern %q", p)
			}
		}
	}
	return &Collector{config: config, git: gitCmd{dir: config.Dir}, logger: logger}, nil
}

// Collect builds a validated change summary of everything not yet committed,
// staged or not, untracked files included.
func (c *Collector) Collect(ctx context.Context) (change.Summary, error) {
	files, err := c.Files(ctx)
	if err != nil {
		return change.Summary{}, err
	}
	added, err := c.addedLines(ctx, files)
	if err != nil {
		return change.Summary{}, err
	}
	sum := c.summarize(files, added)
	if err := sum.Validate(); err != nil {
		return change.Summary{}, fmt.Errorf("collect: %w", err)
	}
	c.logger.Debug("collected changes", "files", sum.FileCount, "added", sum.LinesAdded, "removed", sum.LinesRemoved)
	return sum, nil
}

// Files lists changed paths with line counts, ignore patterns applied.
func (c *Collector) Files(ctx context.Context) ([]FileChange, error) {
	out, err := c.git.run(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	files := c.parseStatus(out)
	if len(files) == 0 {
		return nil, nil
	}

	stats, err := c.numstat(ctx)
	if err != nil {
		return nil, err
	}
	for i := range files {
		f := &files[i]
		if f.Status == "??" {
			f.Added, f.Binary = countLines(filepath.Join(c.config.Dir, filepath.FromSlash(f.Path)))
			continue
		}
		if s, ok := stats[f.Path]; ok {
			f.Added, f.Removed, f.Binary = s.Added, s.Removed, s.Binary
		}
	}
	return files, nil
}

// #endregion collector

// #region parse

func (c *Collector) parseStatus(out string) []FileChange {
	fields := strings.Split(out, "\x00")
	var files []FileChange
	for i := 0; i < len(fields); i++ {
		e := fields[i]
		if len(e) < 4 {
			continue
		}
		f := FileChange{Path: e[3:], Status: e[:2]}
		if (f.Status[0] == 'R' || f.Status[0] == 'C') && i+1 < len(fields) {
			i++ // original path follows
			f.From = fields[i]
		}
		if c.ignored(f.Path) {
			continue
		}
		files = append(files, f)
	}
	return files
}

func (c *Collector) numstat(ctx context.Context) (map[string]FileChange, error) {
	out, err := c.git.run(ctx, "diff", "--numstat", "-z", "--no-renames", c.base(ctx))
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	stats := make(map[string]FileChange)
	for _, rec := range strings.Split(out, "\x00") {
		parts := strings.SplitN(rec, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		f := FileChange{Path: parts[2]}
		if parts[0] == "-" {
			f.Binary = true
		} else {
			f.Added, _ = strconv.Atoi(parts[0])
			f.Removed, _ = strconv.Atoi(parts[1])
		}
		stats[f.Path] = f
	}
	return stats, nil
}

// addedLines returns the lines added to the collected tracked files plus the
// content of collected untracked text files. Ignored paths never contribute.
func (c *Collector) addedLines(ctx context.Context, files []FileChange) ([]string, error) {
	var tracked []string
	for _, f := range files {
		if f.Status != "??" {
			tracked = append(tracked, f.Path)
		}
	}
	var lines []string
	if len(tracked) > 0 {
		diff, err := c.diffAdded(ctx, tracked)
		if err != nil {
			return nil, err
		}
		lines = diff
	}
	for _, f := range files {
		if f.Status != "??" || f.Binary {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.config.Dir, filepath.FromSlash(f.Path)))
		if err != nil {
			continue
		}
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	return lines, nil
}

func (c *Collector) diffAdded(ctx context.Context, paths []string) ([]string, error) {
	g := c.git
	g.env = literalPathspecs
	args := append([]string{"diff", "-U0", "--no-color", "--no-renames", c.base(ctx), "--"}, paths...)
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		l := sc.Text()
		if strings.HasPrefix(l, "+") && !strings.HasPrefix(l, "+++") {
			lines = append(lines, l[1:])
		}
	}
	return lines, nil
}

func (c *Collector) base(ctx context.Context) string {
	if c.git.hasHead(ctx) {
		return "HEAD"
	}
	return emptyTree
}

// #endregion parse

// #region summarize

func (c *Collector) summarize(files []FileChange, added []string) change.Summary {
	sum := change.Summary{FileCount: len(files)}
	dirs := make(map[string]struct{})
	for _, f := range files {
		sum.LinesAdded += f.Added
		sum.LinesRemoved += f.Removed
		dirs[path.Dir(f.Path)] = struct{}{}
		if ext := strings.ToLower(path.Ext(f.Path)); ext != "" {
			if sum.Extensions == nil {
				sum.Extensions = make(map[string]int)
			}
			sum.Extensions[ext]++
		}
		if matchAny(c.config.TestPatterns, f.Path) {
			sum.HasTests = true
		}
		if matchAny(c.config.DocPatterns, f.Path) {
			sum.HasDocs = true
		}
		for _, m := range c.config.Manifests {
			if path.Base(f.Path) == m {
				sum.ManifestsTouched++
				break
			}
		}
	}
	for d := range dirs {
		sum.Directories = append(sum.Directories, d)
	}
	sum.Directories = sum.SortedDirectories()
	for _, l := range added {
		if containsAny(l, todoMarkers) {
			sum.HasTODO = true
		}
		if containsAny(l, breakingMarkers) {
			sum.Breaking = true
		}
	}
	return sum
}

func (c *Collector) ignored(p string) bool {
	return matchAny(c.config.Ignore, p)
}

func matchAny(patterns []string, p string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, p); ok {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// countLines counts lines in a file. Files with a NUL byte are binary.
func countLines(name string) (int, bool) {
	data, err := os.ReadFile(name)
	if err != nil || len(data) == 0 {
		return 0, false
	}
	if bytes.IndexByte(data[:min(len(data), 8000)], 0) >= 0 {
		return 0, true
	}
	n := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		n++
	}
	return n, false
}

// #endregion summarize
