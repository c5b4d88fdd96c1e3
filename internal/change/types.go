package change

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidSummary is returned when a Summary violates its count invariants.
var ErrInvalidSummary = errors.New("invalid change summary")

// #region summary
// Summary describes a pending set of working-tree changes. It is collected once per
// tick and treated as immutable by every scoring stage.
type Summary struct {
	FileCount        int            `json:"file_count"`
	Extensions       map[string]int `json:"extensions,omitempty"` // ".go" -> 4
	Directories      []string       `json:"directories,omitempty"`
	LinesAdded       int            `json:"lines_added"`
	LinesRemoved     int            `json:"lines_removed"`
	ManifestsTouched int            `json:"manifests_touched"` // go.mod, package.json, ...
	HasTests         bool           `json:"has_tests"`
	HasDocs          bool           `json:"has_docs"`
	HasTODO          bool           `json:"has_todo"`
	Breaking         bool           `json:"breaking"`
}

// #endregion summary

// #region validate
// Validate checks that all counts are non-negative. Collectors call it before handing
// a summary to the engine; the engine re-asserts it and never repairs a bad summary.
func (s Summary) Validate() error {
	switch {
	case s.FileCount < 0:
		return fmt.Errorf("%w: file count %d", ErrInvalidSummary, s.FileCount)
	case s.LinesAdded < 0:
		return fmt.Errorf("%w: lines added %d", ErrInvalidSummary, s.LinesAdded)
	case s.LinesRemoved < 0:
		return fmt.Errorf("%w: lines removed %d", ErrInvalidSummary, s.LinesRemoved)
	case s.ManifestsTouched < 0:
		return fmt.Errorf("%w: manifests touched %d", ErrInvalidSummary, s.ManifestsTouched)
	}
	for ext, n := range s.Extensions {
		if n < 0 {
			return fmt.Errorf("%w: extension %q count %d", ErrInvalidSummary, ext, n)
		}
	}
	return nil
}

// #endregion validate

// #region accessors
// LinesTouched is added plus removed lines.
func (s Summary) LinesTouched() int {
	return s.LinesAdded + s.LinesRemoved
}

// DirectoryCount returns the number of distinct touched directories.
func (s Summary) DirectoryCount() int {
	return len(s.SortedDirectories())
}

// SortedDirectories returns the distinct touched directories in lexical order.
func (s Summary) SortedDirectories() []string {
	seen := make(map[string]struct{}, len(s.Directories))
	out := make([]string, 0, len(s.Directories))
	for _, d := range s.Directories {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// SortedExtensions returns extensions with a positive count in lexical order.
func (s Summary) SortedExtensions() []string {
	out := make([]string, 0, len(s.Extensions))
	for ext, n := range s.Extensions {
		if n > 0 {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// SharedExtension reports whether every counted file carries the same extension.
func (s Summary) SharedExtension() bool {
	exts := s.SortedExtensions()
	return len(exts) == 1 && s.Extensions[exts[0]] == s.FileCount
}

// #endregion accessors
