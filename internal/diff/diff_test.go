package diff_test

import (
	"strings"
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineDiff_SingleLineChange(t *testing.T) {
	renderer := diff.New()

	result := renderer.LineDiff("a\nb\nc\n", "a\nB\nc\n")
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Removed)
	assert.Contains(t, result.Unified, "-b\n")
	assert.Contains(t, result.Unified, "+B\n")
	assert.Contains(t, result.Unified, " a\n")
}

func TestLineDiff_NoChange(t *testing.T) {
	renderer := diff.New()

	result := renderer.LineDiff("a\nb\n", "a\nb\n")
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Removed)
}

func TestLineDiff_PureInsertion(t *testing.T) {
	renderer := diff.New()

	result := renderer.LineDiff("a\nc\n", "a\nb\nc\n")
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Removed)
	assert.Contains(t, result.Unified, "+b\n")
}

func TestSemanticDiff_BuildsHunks(t *testing.T) {
	renderer := diff.New()
	original := "l1\nl2\nl3\nl4\nl5\nl6\nl7\nl8\nl9\nl10\n"
	updated := "l1\nl2\nl3\nl4\nCHANGED\nl6\nl7\nl8\nl9\nl10\n"

	structured, summary, err := renderer.SemanticDiff(original, updated)
	require.NoError(t, err)
	assert.Equal(t, 1, structured.Added)
	assert.Equal(t, 1, structured.Removed)
	assert.Equal(t, "1 hunk(s), +1/-1 lines", summary)

	require.Len(t, structured.Hunks, 1)
	hunk := structured.Hunks[0]
	// Three lines of context on each side of the one-line change.
	assert.Equal(t, 2, hunk.OldStart)
	assert.Equal(t, 2, hunk.NewStart)
	assert.Equal(t, 7, hunk.OldCount)
	assert.Equal(t, 7, hunk.NewCount)
	assert.Contains(t, hunk.Lines, "-l5")
	assert.Contains(t, hunk.Lines, "+CHANGED")
}

func TestSemanticDiff_DistantChangesSplitIntoHunks(t *testing.T) {
	renderer := diff.New()
	var a, b strings.Builder
	for i := 0; i < 30; i++ {
		line := "line\n"
		a.WriteString(line)
		if i == 0 || i == 29 {
			b.WriteString("edited\n")
		} else {
			b.WriteString(line)
		}
	}

	structured, _, err := renderer.SemanticDiff(a.String(), b.String())
	require.NoError(t, err)
	assert.Len(t, structured.Hunks, 2)
}

func TestSemanticDiff_NoChange(t *testing.T) {
	renderer := diff.New()

	structured, summary, err := renderer.SemanticDiff("same\n", "same\n")
	require.NoError(t, err)
	assert.Empty(t, structured.Hunks)
	assert.Equal(t, "0 hunk(s), +0/-0 lines", summary)
}
