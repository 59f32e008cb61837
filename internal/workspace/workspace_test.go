package workspace_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/workspace"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestWorkspace(t *testing.T) (*workspace.Workspace, string) {
	t.Helper()
	root := t.TempDir()
	ws, err := workspace.New(root, 0, testLogger())
	require.NoError(t, err)
	return ws, root
}

func TestNew_MissingRootFails(t *testing.T) {
	_, err := workspace.New("/does/not/exist", 0, testLogger())
	assert.Error(t, err)
}

func TestNew_FileAsRootFails(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := workspace.New(file, 0, testLogger())
	assert.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	require.NoError(t, ws.CreateDir("sub/dir"))
	require.NoError(t, ws.WriteFile("sub/dir/file.txt", "hello"))

	got, err := ws.ReadFile("sub/dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestResolvePath_DeniesEscape(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	_, err := ws.ResolvePath("../outside.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside workspace root")

	_, err = ws.ResolvePath("/etc/passwd")
	assert.Error(t, err)
}

func TestResolvePath_DeniesSymlinkEscape(t *testing.T) {
	ws, root := newTestWorkspace(t)

	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0600))
	require.NoError(t, os.Symlink(secret, filepath.Join(root, "link.txt")))

	_, err := ws.ReadFile("link.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside workspace root")
}

func TestExtraRootsGrantAccess(t *testing.T) {
	root := t.TempDir()
	state := t.TempDir()
	ws, err := workspace.New(root, 0, testLogger(), state)
	require.NoError(t, err)

	path := filepath.Join(state, "backups", "a.bak")
	require.NoError(t, ws.CreateDir(filepath.Join(state, "backups")))
	require.NoError(t, ws.WriteFile(path, "backup content"))

	got, err := ws.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "backup content", got)
}

func TestReadFile_EnforcesSizeCeiling(t *testing.T) {
	root := t.TempDir()
	ws, err := workspace.New(root, 16, testLogger())
	require.NoError(t, err)

	big := filepath.Join(root, "big.txt")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("a", 64)), 0644))

	_, err = ws.ReadFile("big.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")

	small := filepath.Join(root, "small.txt")
	require.NoError(t, os.WriteFile(small, []byte("tiny"), 0644))
	got, err := ws.ReadFile("small.txt")
	require.NoError(t, err)
	assert.Equal(t, "tiny", got)
}

func TestWriteFile_PreservesPermissions(t *testing.T) {
	ws, root := newTestWorkspace(t)

	path := filepath.Join(root, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))

	require.NoError(t, ws.WriteFile("script.sh", "#!/bin/sh\necho hi\n"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestWriteFile_LeavesNoTempFiles(t *testing.T) {
	ws, root := newTestWorkspace(t)

	require.NoError(t, ws.WriteFile("a.txt", "content"))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name())
}

func TestExistsAndDelete(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	assert.False(t, ws.Exists("a.txt"))
	require.NoError(t, ws.WriteFile("a.txt", "x"))
	assert.True(t, ws.Exists("a.txt"))

	require.NoError(t, ws.DeleteFile("a.txt"))
	assert.False(t, ws.Exists("a.txt"))
}

func TestReadDir_SortedNames(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	require.NoError(t, ws.WriteFile("b.txt", "2"))
	require.NoError(t, ws.WriteFile("a.txt", "1"))

	names, err := ws.ReadDir(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}
