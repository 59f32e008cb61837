package history_test

import (
	"fmt"
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/UpRoot-Company/mcp-textedit/internal/editengine/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opItem(id string) editengine.HistoryItem {
	return editengine.HistoryItem{Operation: &editengine.EditOperation{
		ID:          id,
		Description: "op " + id,
		FilePath:    id + ".txt",
	}}
}

func TestStack_PushUndoRedo(t *testing.T) {
	stack := history.New(10)
	assert.False(t, stack.CanUndo())
	assert.False(t, stack.CanRedo())

	stack.PushOperation(opItem("1"))
	stack.PushOperation(opItem("2"))
	require.True(t, stack.CanUndo())

	item, ok := stack.Undo()
	require.True(t, ok)
	assert.Equal(t, "2", item.ID())
	assert.True(t, stack.CanRedo())

	item, ok = stack.Redo()
	require.True(t, ok)
	assert.Equal(t, "2", item.ID())
	assert.False(t, stack.CanRedo())
}

func TestStack_EmptyPopsReportFalse(t *testing.T) {
	stack := history.New(10)

	_, ok := stack.Undo()
	assert.False(t, ok)
	_, ok = stack.Redo()
	assert.False(t, ok)
}

func TestStack_PushClearsRedo(t *testing.T) {
	stack := history.New(10)
	stack.PushOperation(opItem("1"))

	_, ok := stack.Undo()
	require.True(t, ok)
	require.True(t, stack.CanRedo())

	stack.PushOperation(opItem("2"))
	assert.False(t, stack.CanRedo(), "a fork invalidates the redo stack")
}

func TestStack_TrimsToMax(t *testing.T) {
	stack := history.New(2)
	for i := 1; i <= 3; i++ {
		stack.PushOperation(opItem(fmt.Sprintf("%d", i)))
	}

	entries := stack.Entries()
	require.Len(t, entries, 2)
	// Most recent first; the oldest entry was dropped.
	assert.Equal(t, "3", entries[0].ID())
	assert.Equal(t, "2", entries[1].ID())
}

func TestStack_ReplaceOperation(t *testing.T) {
	stack := history.New(10)
	stack.PushOperation(opItem("pending"))

	completed := editengine.HistoryItem{Batch: &editengine.BatchOperation{
		ID:          "pending",
		Description: "completed batch",
		Operations:  []editengine.EditOperation{{ID: "member", FilePath: "a.txt"}},
	}}
	stack.ReplaceOperation("pending", completed)

	item, ok := stack.Undo()
	require.True(t, ok)
	require.NotNil(t, item.Batch)
	assert.Equal(t, "completed batch", item.Description())
	assert.Equal(t, []string{"a.txt"}, item.Files())
}

func TestStack_RemoveOperation(t *testing.T) {
	stack := history.New(10)
	stack.PushOperation(opItem("1"))
	stack.PushOperation(opItem("2"))

	stack.RemoveOperation("1")

	entries := stack.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].ID())

	// Removing an unknown id is a no-op.
	stack.RemoveOperation("missing")
	assert.Len(t, stack.Entries(), 1)
}

func TestStack_NonPositiveMaxUsesDefault(t *testing.T) {
	stack := history.New(0)
	for i := 0; i < history.DefaultMaxEntries+5; i++ {
		stack.PushOperation(opItem(fmt.Sprintf("%d", i)))
	}
	assert.Len(t, stack.Entries(), history.DefaultMaxEntries)
}
