// Package workspace guards all engine file access behind a set of allowed
// directories: the workspace root plus any extra roots such as the backup
// directory under the state dir. Paths are validated for containment
// (including symlink targets) before any read or write, writes are atomic,
// and a per-file size ceiling keeps the engine from loading unreasonable
// content.
package workspace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultMaxFileSize is the per-file ceiling when the limits file does not
// set one (8 MiB).
const DefaultMaxFileSize = 8 * 1024 * 1024

// Workspace is the engine's filesystem surface. Relative paths resolve
// against the primary root; absolute paths are accepted only inside one of
// the allowed roots. It satisfies the edit engine's FileSystem contract.
type Workspace struct {
	root        string
	allowed     []string
	maxFileSize int64
	logger      logrus.FieldLogger
}

// New resolves root (cwd when empty) and returns a workspace over it.
// extraRoots grants access to additional directories outside the primary
// root, such as the backup directory.
func New(root string, maxFileSize int64, logger logrus.FieldLogger, extraRoots ...string) (*Workspace, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = cwd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	absRoot = filepath.Clean(absRoot)
	if info, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("workspace root %s: %w", absRoot, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", absRoot)
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	allowed := []string{absRoot}
	for _, extra := range extraRoots {
		if extra == "" {
			continue
		}
		absExtra, err := filepath.Abs(extra)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve allowed directory %s: %w", extra, err)
		}
		allowed = append(allowed, filepath.Clean(absExtra))
	}
	return &Workspace{root: absRoot, allowed: allowed, maxFileSize: maxFileSize, logger: logger}, nil
}

// Root returns the absolute primary workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// ResolvePath validates a workspace-relative or absolute path and returns
// its absolute form. Paths outside every allowed root are denied,
// including paths whose symlink target escapes. Paths that do not exist
// yet are allowed when their parent directory resolves inside an allowed
// root.
func (w *Workspace) ResolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	cleanPath := filepath.Clean(path)

	if !w.withinAllowed(cleanPath) {
		return "", fmt.Errorf("access denied - path outside workspace root: %s", cleanPath)
	}

	realPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			// New file or directory: the nearest existing ancestor must
			// resolve inside an allowed root.
			if parentReal, parentErr := filepath.EvalSymlinks(nearestExisting(filepath.Dir(cleanPath))); parentErr == nil {
				if !w.withinAllowedReal(parentReal) {
					return "", fmt.Errorf("access denied - parent directory outside workspace root: %s", parentReal)
				}
			}
			return cleanPath, nil
		}
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	if !w.withinAllowedReal(realPath) {
		return "", fmt.Errorf("access denied - symlink target outside workspace root: %s", realPath)
	}
	return realPath, nil
}

// nearestExisting walks up until it finds a directory that exists.
func nearestExisting(dir string) string {
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path+string(filepath.Separator), root+string(filepath.Separator))
}

func (w *Workspace) withinAllowed(cleanPath string) bool {
	for _, root := range w.allowed {
		if within(cleanPath, root) {
			return true
		}
	}
	return false
}

// withinAllowedReal also resolves each allowed root's own symlinks, so
// roots like /tmp on macOS (a symlink to /private/tmp) still contain their
// children.
func (w *Workspace) withinAllowedReal(realPath string) bool {
	cleanReal := filepath.Clean(realPath)
	for _, root := range w.allowed {
		if within(cleanReal, root) {
			return true
		}
		if rootReal, err := filepath.EvalSymlinks(root); err == nil && within(cleanReal, filepath.Clean(rootReal)) {
			return true
		}
	}
	return false
}

// Exists reports whether the path exists inside the workspace.
func (w *Workspace) Exists(path string) bool {
	validPath, err := w.ResolvePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(validPath)
	return err == nil
}

// ReadFile returns a file's content as UTF-8 text, enforcing the size
// ceiling before reading.
func (w *Workspace) ReadFile(path string) (string, error) {
	validPath, err := w.ResolvePath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(validPath)
	if err != nil {
		return "", err
	}
	if info.Size() > w.maxFileSize {
		return "", fmt.Errorf("file %s exceeds the %d byte limit (%d bytes)", path, w.maxFileSize, info.Size())
	}
	data, err := os.ReadFile(validPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes content atomically: a temporary file in the target
// directory is synced, then renamed over the destination, preserving the
// destination's permissions when it already exists.
func (w *Workspace) WriteFile(path string, content string) error {
	validPath, err := w.ResolvePath(path)
	if err != nil {
		return err
	}

	mode := os.FileMode(0600)
	if info, statErr := os.Stat(validPath); statErr == nil {
		mode = info.Mode().Perm()
	}

	tempPath := validPath + ".tmp." + randomSuffix()
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tempPath, validPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// CreateDir creates a directory (and parents) inside the workspace.
func (w *Workspace) CreateDir(path string) error {
	validPath, err := w.ResolvePath(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(validPath, 0755)
}

// ReadDir lists the entry names of a directory, sorted.
func (w *Workspace) ReadDir(path string) ([]string, error) {
	validPath, err := w.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(validPath)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// DeleteFile removes a file inside the workspace.
func (w *Workspace) DeleteFile(path string) error {
	validPath, err := w.ResolvePath(path)
	if err != nil {
		return err
	}
	return os.Remove(validPath)
}

func randomSuffix() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
