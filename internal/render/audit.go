package render

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Audit re-renders a committed message from its trailer and compares the subject.
// A non-zero distance means the subject was edited after rendering.
func (r *Renderer) Audit(message string) (Report, error) {
	tr, err := record.ParseTrailer(message)
	if err != nil {
		return Report{}, fmt.Errorf("audit: %w", err)
	}
	expected := r.Render(tr.Tokens, tr.Symbol, tr.Locale).Text

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, tr.Subject, false))
	rep := Report{
		Expected: expected,
		Actual:   tr.Subject,
		Edited:   expected != tr.Subject,
		Distance: dmp.DiffLevenshtein(diffs),
	}
	if rep.Edited {
		rep.Diff = inlineDiff(diffs)
	}
	return rep, nil
}

// inlineDiff marks deletions as [-x-] and insertions as {+x+}.
func inlineDiff(diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
