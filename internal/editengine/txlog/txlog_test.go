package txlog_test

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/UpRoot-Company/mcp-textedit/internal/editengine/txlog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testSnapshots() []editengine.TransactionSnapshot {
	return []editengine.TransactionSnapshot{{
		FilePath:        "a.txt",
		OriginalContent: "original",
		OriginalHash:    editengine.ContentHash("original"),
	}}
}

func TestLog_BeginWritesJournal(t *testing.T) {
	dir := t.TempDir()
	log, err := txlog.New(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, log.Begin("tx-1", "test batch", testSnapshots()))

	data, err := os.ReadFile(filepath.Join(dir, "tx-1.json"))
	require.NoError(t, err)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "tx-1", record["id"])
	assert.Equal(t, "pending", record["state"])
	assert.Equal(t, "test batch", record["description"])
}

func TestLog_CommitRemovesJournal(t *testing.T) {
	dir := t.TempDir()
	log, err := txlog.New(dir, testLogger())
	require.NoError(t, err)

	snapshots := testSnapshots()
	require.NoError(t, log.Begin("tx-1", "test batch", snapshots))

	snapshots[0].NewContent = "updated"
	snapshots[0].NewHash = editengine.ContentHash("updated")
	require.NoError(t, log.Commit("tx-1", snapshots))

	_, err = os.Stat(filepath.Join(dir, "tx-1.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLog_RollbackRemovesJournal(t *testing.T) {
	dir := t.TempDir()
	log, err := txlog.New(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, log.Begin("tx-1", "test batch", testSnapshots()))
	require.NoError(t, log.Rollback("tx-1"))

	_, err = os.Stat(filepath.Join(dir, "tx-1.json"))
	assert.True(t, os.IsNotExist(err))

	// Rolling back an already-removed transaction is not an error.
	assert.NoError(t, log.Rollback("tx-1"))
}

func TestLog_CommitUnknownTransactionFails(t *testing.T) {
	log, err := txlog.New(t.TempDir(), testLogger())
	require.NoError(t, err)

	assert.Error(t, log.Commit("never-began", nil))
}

func TestLog_LeftoverJournalsSurviveStartup(t *testing.T) {
	dir := t.TempDir()
	leftover := filepath.Join(dir, "crashed.json")
	require.NoError(t, os.WriteFile(leftover, []byte(`{"id":"crashed","state":"pending"}`), 0600))

	// Startup reports leftovers but never deletes them; their snapshots are
	// the only route back to pre-batch content.
	_, err := txlog.New(dir, testLogger())
	require.NoError(t, err)

	_, err = os.Stat(leftover)
	assert.NoError(t, err)
}

func TestLog_SequentialTransactions(t *testing.T) {
	dir := t.TempDir()
	log, err := txlog.New(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, log.Begin("tx-1", "first", testSnapshots()))
	require.NoError(t, log.Commit("tx-1", testSnapshots()))

	// The lock is released on commit, so a new transaction can begin.
	require.NoError(t, log.Begin("tx-2", "second", testSnapshots()))
	require.NoError(t, log.Rollback("tx-2"))
}
