package editengine_test

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/sirupsen/logrus"
)

// testLogger returns a silent logger so test output stays readable.
func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestMatcher() *editengine.Matcher {
	return editengine.NewMatcher(testLogger(), editengine.Limits{})
}

// memFS is an in-memory editengine.FileSystem for exercising the apply and
// coordinator paths without touching disk.
type memFS struct {
	mu    sync.Mutex
	files map[string]string
	dirs  map[string]bool
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string]string), dirs: make(map[string]bool)}
}

func (f *memFS) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; ok {
		return true
	}
	return f.dirs[path]
}

func (f *memFS) ReadFile(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("file not found: %s", path)
	}
	return content, nil
}

func (f *memFS) WriteFile(path string, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
	return nil
}

func (f *memFS) CreateDir(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = true
	return nil
}

func (f *memFS) ReadDir(path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(path, "/") + "/"
	var names []string
	for file := range f.files {
		if strings.HasPrefix(file, prefix) && !strings.Contains(file[len(prefix):], "/") {
			names = append(names, filepath.Base(file))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *memFS) DeleteFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	delete(f.files, path)
	return nil
}

func (f *memFS) content(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[path]
}
