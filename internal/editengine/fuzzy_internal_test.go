package editengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyTolerance(t *testing.T) {
	tests := []struct {
		length   int
		expected int
	}{
		{1, 1},
		{4, 1},
		{5, 1},
		{9, 1},
		{10, 2},
		{11, 3},
		{20, 6},
		{100, 30},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, fuzzyTolerance(test.length), "length %d", test.length)
	}
}

func TestSearchBudget_EvaluationCap(t *testing.T) {
	budget := newSearchBudget(Limits{MaxDistanceEvaluations: 2, MaxSearchDuration: time.Minute})

	require.Nil(t, budget.spend())
	require.Nil(t, budget.spend())

	fail := budget.spend()
	require.NotNil(t, fail)
	assert.Equal(t, CodeBudgetExceeded, fail.Code)
	// The diagnostic reports the evaluation that breached the cap.
	assert.Contains(t, fail.Message, "after 3 distance evaluations")
}

func TestSearchBudget_DurationCap(t *testing.T) {
	budget := newSearchBudget(Limits{MaxDistanceEvaluations: 1000, MaxSearchDuration: time.Nanosecond})
	time.Sleep(time.Millisecond)

	fail := budget.spend()
	require.NotNil(t, fail)
	assert.Equal(t, CodeBudgetExceeded, fail.Code)
}

func TestDedupeOverlapping_KeepsLowestDistance(t *testing.T) {
	matches := []Match{
		{Start: 0, End: 10, Distance: 3},
		{Start: 2, End: 12, Distance: 1},
		{Start: 20, End: 30, Distance: 2},
	}

	kept := dedupeOverlapping(matches)
	require.Len(t, kept, 2)
	// Ordered by start offset, overlap resolved in favour of distance 1.
	assert.Equal(t, 2, kept[0].Start)
	assert.Equal(t, 1, kept[0].Distance)
	assert.Equal(t, 20, kept[1].Start)
}

func TestDedupeOverlapping_TieBreaksOnEarliestStart(t *testing.T) {
	matches := []Match{
		{Start: 5, End: 15, Distance: 1},
		{Start: 3, End: 13, Distance: 1},
	}

	kept := dedupeOverlapping(matches)
	require.Len(t, kept, 1)
	assert.Equal(t, 3, kept[0].Start)
}

func TestIsWordStart(t *testing.T) {
	runes := []rune("foo bar.baz")

	assert.True(t, isWordStart(runes, 0), "start of content")
	assert.False(t, isWordStart(runes, 1), "inside a word")
	assert.False(t, isWordStart(runes, 3), "whitespace itself")
	assert.True(t, isWordStart(runes, 4), "after whitespace")
	assert.True(t, isWordStart(runes, 7), "word to punctuation transition")
	assert.True(t, isWordStart(runes, 8), "punctuation to word transition")
	assert.False(t, isWordStart(runes, len(runes)), "past the end")
}
