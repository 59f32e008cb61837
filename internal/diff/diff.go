// Package diff renders the line-level previews attached to dry-run edit
// results. The engine treats this package as an external collaborator: it
// consumes the rendered output and never inspects diff internals.
package diff

import (
	"fmt"
	"strings"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines kept around each hunk in
// semantic mode.
const contextLines = 3

// Renderer implements editengine.DiffRenderer on diffmatchpatch.
type Renderer struct{}

// New returns a renderer.
func New() *Renderer {
	return &Renderer{}
}

// markedLine is one output line with its diff marker.
type markedLine struct {
	marker byte // ' ', '+' or '-'
	text   string
}

// LineDiff renders a unified line diff (Myers over a line-level token
// stream) with added/removed counts.
func (r *Renderer) LineDiff(original, updated string) editengine.LineDiffResult {
	lines := lineDiff(original, updated, false)

	var b strings.Builder
	added, removed := 0, 0
	for _, line := range lines {
		b.WriteByte(line.marker)
		b.WriteString(line.text)
		b.WriteByte('\n')
		switch line.marker {
		case '+':
			added++
		case '-':
			removed++
		}
	}
	return editengine.LineDiffResult{Unified: b.String(), Added: added, Removed: removed}
}

// SemanticDiff renders a cleaned-up diff grouped into hunks with three
// lines of context, plus a short textual summary.
func (r *Renderer) SemanticDiff(original, updated string) (*editengine.StructuredDiff, string, error) {
	lines := lineDiff(original, updated, true)
	hunks := buildHunks(lines, contextLines)

	added, removed := 0, 0
	for _, line := range lines {
		switch line.marker {
		case '+':
			added++
		case '-':
			removed++
		}
	}
	structured := &editengine.StructuredDiff{Added: added, Removed: removed, Hunks: hunks}
	summary := fmt.Sprintf("%d hunk(s), +%d/-%d lines", len(hunks), added, removed)
	return structured, summary, nil
}

// lineDiff computes a line-level diff as marked lines. Semantic cleanup
// merges trivially fragmented edits into human-shaped ones.
func lineDiff(original, updated string, semantic bool) []markedLine {
	dmp := diffmatchpatch.New()
	a, b, lineIndex := dmp.DiffLinesToChars(original, updated)
	diffs := dmp.DiffMain(a, b, false)
	if semantic {
		diffs = dmp.DiffCleanupSemantic(diffs)
	}
	diffs = dmp.DiffCharsToLines(diffs, lineIndex)

	var out []markedLine
	for _, d := range diffs {
		marker := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			marker = '+'
		case diffmatchpatch.DiffDelete:
			marker = '-'
		}
		for _, text := range splitLines(d.Text) {
			out = append(out, markedLine{marker: marker, text: text})
		}
	}
	return out
}

// splitLines splits diff text into lines without a trailing phantom line.
func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// buildHunks groups changed lines into hunks, keeping up to context
// unchanged lines on each side and merging hunks whose context would
// overlap.
func buildHunks(lines []markedLine, context int) []editengine.DiffHunk {
	// Find changed-line indexes first.
	var changed []int
	for i, line := range lines {
		if line.marker != ' ' {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	// Merge changes into [lo, hi] index ranges with context halos.
	type span struct{ lo, hi int }
	var spans []span
	for _, idx := range changed {
		lo := idx - context
		if lo < 0 {
			lo = 0
		}
		hi := idx + context
		if hi > len(lines)-1 {
			hi = len(lines) - 1
		}
		if len(spans) > 0 && lo <= spans[len(spans)-1].hi+1 {
			spans[len(spans)-1].hi = hi
		} else {
			spans = append(spans, span{lo: lo, hi: hi})
		}
	}

	// Render each span as a hunk, tracking old/new line numbers as we go.
	hunks := make([]editengine.DiffHunk, 0, len(spans))
	oldLine, newLine := 1, 1
	pos := 0
	for _, sp := range spans {
		for ; pos < sp.lo; pos++ {
			switch lines[pos].marker {
			case ' ':
				oldLine++
				newLine++
			case '-':
				oldLine++
			case '+':
				newLine++
			}
		}
		hunk := editengine.DiffHunk{OldStart: oldLine, NewStart: newLine}
		for ; pos <= sp.hi; pos++ {
			line := lines[pos]
			hunk.Lines = append(hunk.Lines, string(line.marker)+line.text)
			switch line.marker {
			case ' ':
				hunk.OldCount++
				hunk.NewCount++
				oldLine++
				newLine++
			case '-':
				hunk.OldCount++
				oldLine++
			case '+':
				hunk.NewCount++
				newLine++
			}
		}
		hunks = append(hunks, hunk)
	}
	return hunks
}
