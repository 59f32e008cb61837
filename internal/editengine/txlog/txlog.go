// Package txlog implements the edit engine's durable transaction journal.
// Each in-flight batch writes one JSON journal file containing its
// snapshots; commit and rollback remove it. A journal file left behind by
// a crashed run is surfaced at startup as a recovery hint, never deleted
// silently.
package txlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// Log is a directory-backed transaction journal. A file lock guards the
// journal directory against a second server instance sharing the same
// state directory; in-process callers are serialised by a mutex.
type Log struct {
	dir    string
	lock   *flock.Flock
	mu     sync.Mutex
	logger logrus.FieldLogger
}

// journalRecord is the on-disk form of one in-flight transaction.
type journalRecord struct {
	ID          string                           `json:"id"`
	Description string                           `json:"description"`
	State       string                           `json:"state"`
	StartedAt   time.Time                        `json:"startedAt"`
	Snapshots   []editengine.TransactionSnapshot `json:"snapshots"`
}

// New opens (creating if needed) a journal at dir and reports any leftover
// journals from a crashed run.
func New(dir string, logger logrus.FieldLogger) (*Log, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create transaction log directory: %w", err)
	}
	l := &Log{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, ".lock")),
		logger: logger,
	}
	l.reportLeftovers()
	return l, nil
}

// reportLeftovers logs journals that a previous run never resolved. Their
// snapshots hold the pre-batch content, so an operator can recover by
// inspecting the journal file by hand.
func (l *Log) reportLeftovers() {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if l.logger != nil {
			l.logger.WithField("journal", filepath.Join(l.dir, entry.Name())).
				Warn("Found unresolved transaction journal from a previous run; inspect it to recover pre-batch content")
		}
	}
}

// Begin journals a new transaction with its pre-batch snapshots. The
// directory lock is held until the matching Commit or Rollback.
func (l *Log) Begin(id, description string, snapshots []editengine.TransactionSnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire transaction lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("transaction log is locked by another process")
	}

	record := journalRecord{
		ID:          id,
		Description: description,
		State:       "pending",
		StartedAt:   time.Now(),
		Snapshots:   snapshots,
	}
	if err := l.writeRecord(record); err != nil {
		_ = l.lock.Unlock()
		return err
	}
	return nil
}

// Commit finalises a transaction: the record is rewritten with the
// post-apply snapshots for audit, then removed.
func (l *Log) Commit(id string, snapshots []editengine.TransactionSnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() { _ = l.lock.Unlock() }()

	record, err := l.readRecord(id)
	if err != nil {
		return err
	}
	record.State = "committed"
	record.Snapshots = snapshots
	if err := l.writeRecord(record); err != nil {
		return err
	}
	return os.Remove(l.journalPath(id))
}

// Rollback discards a transaction's journal after the coordinator has
// restored the snapshots.
func (l *Log) Rollback(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() { _ = l.lock.Unlock() }()

	if err := os.Remove(l.journalPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove journal for %s: %w", id, err)
	}
	return nil
}

func (l *Log) journalPath(id string) string {
	return filepath.Join(l.dir, id+".json")
}

func (l *Log) writeRecord(record journalRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}
	if err := os.WriteFile(l.journalPath(record.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

func (l *Log) readRecord(id string) (journalRecord, error) {
	var record journalRecord
	data, err := os.ReadFile(l.journalPath(id))
	if err != nil {
		return record, fmt.Errorf("failed to read journal for %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to parse journal for %s: %w", id, err)
	}
	return record, nil
}
