package editengine

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBackupRetention is how many backups are kept per original file.
const DefaultBackupRetention = 10

// BackupStore writes timestamped copies of pre-edit file content into a
// dedicated directory and prunes old copies per original file. Filenames
// encode the original path so backups for different files never collide.
type BackupStore struct {
	dir       string
	retention int
	logger    logrus.FieldLogger
}

// NewBackupStore creates a store rooted at dir. Retention below 1 falls
// back to the default.
func NewBackupStore(dir string, retention int, logger logrus.FieldLogger) *BackupStore {
	if retention < 1 {
		retention = DefaultBackupRetention
	}
	return &BackupStore{dir: dir, retention: retention, logger: logger}
}

// Dir returns the backup directory path.
func (s *BackupStore) Dir() string {
	return s.dir
}

// Create writes a backup of content for the given root-relative path and
// prunes older backups of the same file beyond the retention count.
func (s *BackupStore) Create(fs FileSystem, relPath, content string) error {
	if err := fs.CreateDir(s.dir); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	name := backupFileName(relPath, time.Now())
	if err := fs.WriteFile(filepath.Join(s.dir, name), content); err != nil {
		return err
	}
	s.prune(fs, relPath)
	return nil
}

// List returns the backup filenames for a root-relative path, newest first.
func (s *BackupStore) List(fs FileSystem, relPath string) ([]string, error) {
	entries, err := fs.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	prefix := encodeBackupPath(relPath) + "."
	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry, prefix) && strings.HasSuffix(entry, ".bak") {
			names = append(names, entry)
		}
	}
	// Timestamps sort lexically, so reverse order is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Read returns the content of a named backup. The name must be one
// returned by List; path separators are rejected so callers cannot escape
// the backup directory.
func (s *BackupStore) Read(fs FileSystem, name string) (string, error) {
	if strings.ContainsAny(name, "/\\") || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid backup name: %s", name)
	}
	return fs.ReadFile(filepath.Join(s.dir, name))
}

// prune deletes the oldest backups of one file beyond the retention count.
// Prune failures are logged, not fatal: a stale backup is harmless.
func (s *BackupStore) prune(fs FileSystem, relPath string) {
	names, err := s.List(fs, relPath)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("Failed to list backups for pruning")
		}
		return
	}
	for _, name := range names[min(len(names), s.retention):] {
		if err := fs.DeleteFile(filepath.Join(s.dir, name)); err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("backup", name).Warn("Failed to prune backup")
		}
	}
}

// backupFileName builds the deterministic, path-encoded, timestamped name
// for one backup.
func backupFileName(relPath string, at time.Time) string {
	return fmt.Sprintf("%s.%s.bak", encodeBackupPath(relPath), at.Format("20060102-150405.000000000"))
}

// encodeBackupPath flattens a root-relative path into a single filesystem
// safe filename component.
func encodeBackupPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	var b strings.Builder
	b.Grow(len(relPath))
	for _, r := range relPath {
		switch r {
		case '/', '\\':
			b.WriteString("__")
		case ':', '*', '?', '"', '<', '>', '|':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
