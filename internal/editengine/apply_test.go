package editengine_test

import (
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *editengine.ApplyEngine {
	return editengine.NewApplyEngine(testLogger(), newTestMatcher(), nil)
}

func TestPlan_SingleReplacement(t *testing.T) {
	engine := newTestEngine()
	content := "alpha\nbeta\ngamma\n"

	plan, fail := engine.Plan(content, []editengine.Edit{
		{TargetString: "beta", ReplacementString: "BETA"},
	})
	require.Nil(t, fail)
	assert.Equal(t, "alpha\nBETA\ngamma\n", plan.NewContent)

	require.Len(t, plan.InverseEdits, 1)
	inv := plan.InverseEdits[0]
	assert.Equal(t, "BETA", inv.TargetString)
	assert.Equal(t, "beta", inv.ReplacementString)
	require.NotNil(t, inv.IndexRange)
	// The inverse range addresses the replacement inside the new content.
	assert.Equal(t, "BETA", plan.NewContent[inv.IndexRange.Start:inv.IndexRange.End])
}

func TestPlan_InverseEditsRestoreOriginal(t *testing.T) {
	engine := newTestEngine()
	content := "one\ntwo\nthree\nfour\n"

	plan, fail := engine.Plan(content, []editengine.Edit{
		{TargetString: "two", ReplacementString: "TWO-EDITED"},
		{TargetString: "four", ReplacementString: "IV"},
	})
	require.Nil(t, fail)
	assert.Equal(t, "one\nTWO-EDITED\nthree\nIV\n", plan.NewContent)

	// Replaying the inverse edits against the new content yields the
	// original bytes exactly.
	undone, fail := engine.Plan(plan.NewContent, plan.InverseEdits)
	require.Nil(t, fail)
	assert.Equal(t, content, undone.NewContent)
}

func TestPlan_EditFailurePrefixesIndex(t *testing.T) {
	engine := newTestEngine()

	_, fail := engine.Plan("alpha\n", []editengine.Edit{
		{TargetString: "alpha", ReplacementString: "a"},
		{TargetString: "missing", ReplacementString: "b"},
	})
	require.NotNil(t, fail)
	assert.Equal(t, editengine.CodeNoMatch, fail.Code)
	assert.Contains(t, fail.Message, "edit 2:")
}

func TestPlan_OverlapConflict(t *testing.T) {
	engine := newTestEngine()
	content := "abcdef"

	_, fail := engine.Plan(content, []editengine.Edit{
		{TargetString: "abcd", ReplacementString: "x", IndexRange: &editengine.IndexRange{Start: 0, End: 4}},
		{TargetString: "cdef", ReplacementString: "y", IndexRange: &editengine.IndexRange{Start: 2, End: 6}},
	})
	require.NotNil(t, fail)
	assert.Equal(t, editengine.CodeOverlapConflict, fail.Code)
}

func TestPlan_IndexRangeOutOfBounds(t *testing.T) {
	engine := newTestEngine()

	_, fail := engine.Plan("abc", []editengine.Edit{
		{TargetString: "abc", ReplacementString: "x", IndexRange: &editengine.IndexRange{Start: 0, End: 100}},
	})
	require.NotNil(t, fail)
	assert.Equal(t, editengine.CodeIndexOutOfBounds, fail.Code)
}

func TestPlan_IndexRangeContentMismatch(t *testing.T) {
	engine := newTestEngine()

	_, fail := engine.Plan("abcdef", []editengine.Edit{
		{TargetString: "xyz", ReplacementString: "q", IndexRange: &editengine.IndexRange{Start: 0, End: 3}},
	})
	require.NotNil(t, fail)
	assert.Equal(t, editengine.CodeContentMismatch, fail.Code)
}

func TestPlan_ExpectedHashPrecondition(t *testing.T) {
	engine := newTestEngine()
	content := "alpha\nbeta\n"

	good := []editengine.Edit{{
		TargetString:      "beta",
		ReplacementString: "BETA",
		ExpectedHash:      &editengine.ExpectedHash{Algorithm: editengine.HashXXHash64, Value: editengine.ContentHash("beta")},
	}}
	_, fail := engine.Plan(content, good)
	assert.Nil(t, fail)

	bad := []editengine.Edit{{
		TargetString:      "beta",
		ReplacementString: "BETA",
		ExpectedHash:      &editengine.ExpectedHash{Algorithm: editengine.HashXXHash64, Value: "0"},
	}}
	_, fail = engine.Plan(content, bad)
	require.NotNil(t, fail)
	assert.Equal(t, editengine.CodeHashMismatch, fail.Code)
}

func TestPlan_InsertBefore(t *testing.T) {
	engine := newTestEngine()
	content := "a\nb\nc\n"

	plan, fail := engine.Plan(content, []editengine.Edit{{
		ReplacementString: "X\n",
		InsertMode:        editengine.InsertBefore,
		InsertLineRange:   &editengine.LineRange{Start: 2, End: 2},
	}})
	require.Nil(t, fail)
	assert.Equal(t, "a\nX\nb\nc\n", plan.NewContent)

	// The inverse deletes the inserted text.
	undone, fail := engine.Plan(plan.NewContent, plan.InverseEdits)
	require.Nil(t, fail)
	assert.Equal(t, content, undone.NewContent)
}

func TestPlan_InsertAfter(t *testing.T) {
	engine := newTestEngine()
	content := "a\nb\nc\n"

	plan, fail := engine.Plan(content, []editengine.Edit{{
		ReplacementString: "X\n",
		InsertMode:        editengine.InsertAfter,
		InsertLineRange:   &editengine.LineRange{Start: 2, End: 2},
	}})
	require.Nil(t, fail)
	assert.Equal(t, "a\nb\nX\nc\n", plan.NewContent)
}

func TestPlan_InsertAfterLastLineAppends(t *testing.T) {
	engine := newTestEngine()
	content := "a\nb\nc\n"

	plan, fail := engine.Plan(content, []editengine.Edit{{
		ReplacementString: "X\n",
		InsertMode:        editengine.InsertAfter,
		InsertLineRange:   &editengine.LineRange{Start: 3, End: 3},
	}})
	require.Nil(t, fail)
	assert.Equal(t, "a\nb\nc\nX\n", plan.NewContent)
}

func TestPlan_InsertBeyondFileFails(t *testing.T) {
	engine := newTestEngine()

	_, fail := engine.Plan("a\nb\n", []editengine.Edit{{
		ReplacementString: "X\n",
		InsertMode:        editengine.InsertBefore,
		InsertLineRange:   &editengine.LineRange{Start: 10, End: 10},
	}})
	require.NotNil(t, fail)
	assert.Equal(t, editengine.CodeInvalidTarget, fail.Code)
}

func TestPlan_AmbiguousTargetFails(t *testing.T) {
	engine := newTestEngine()

	_, fail := engine.Plan("x\nx\n", []editengine.Edit{
		{TargetString: "x", ReplacementString: "y"},
	})
	require.NotNil(t, fail)
	assert.Equal(t, editengine.CodeAmbiguousMatch, fail.Code)
	assert.Equal(t, []int{1, 2}, fail.Lines)
	assert.Contains(t, fail.Suggestion, "lineRange")
}

func TestCommit_WritesFileAndRecordsOperation(t *testing.T) {
	fs := newMemFS()
	backups := editengine.NewBackupStore("/state/backups", 5, testLogger())
	engine := editengine.NewApplyEngine(testLogger(), newTestMatcher(), backups)

	content := "alpha\nbeta\n"
	require.NoError(t, fs.WriteFile("/ws/a.txt", content))

	edits := []editengine.Edit{{TargetString: "beta", ReplacementString: "BETA"}}
	plan, fail := engine.Plan(content, edits)
	require.Nil(t, fail)

	op, err := engine.Commit(fs, "/ws/a.txt", "a.txt", content, plan, edits, "swap beta")
	require.NoError(t, err)

	assert.Equal(t, "alpha\nBETA\n", fs.content("/ws/a.txt"))
	assert.NotEmpty(t, op.ID)
	assert.Equal(t, "a.txt", op.FilePath)
	assert.Equal(t, "swap beta", op.Description)
	assert.Equal(t, edits, op.Edits)
	assert.Len(t, op.InverseEdits, 1)

	// The pre-edit bytes are preserved as a backup.
	names, err := backups.List(fs, "a.txt")
	require.NoError(t, err)
	require.Len(t, names, 1)
	restored, err := backups.Read(fs, names[0])
	require.NoError(t, err)
	assert.Equal(t, content, restored)
}
