// Package config resolves the server's state directory and the
// operator-tunable engine limits file that lives inside it.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	stateDir  string
	stateOnce sync.Once
)

// StateDir returns the directory holding backups, the transaction journal,
// logs, and limits.yaml. TEXTEDIT_STATE_DIR overrides the default of
// ~/.mcp-textedit. Resolved once per process.
func StateDir() string {
	stateOnce.Do(func() {
		if custom := os.Getenv("TEXTEDIT_STATE_DIR"); custom != "" {
			stateDir = custom
			return
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// No home directory: fall back to a per-user temp location
			// rather than failing startup.
			stateDir = filepath.Join(os.TempDir(), "mcp-textedit")
			return
		}
		stateDir = filepath.Join(homeDir, ".mcp-textedit")
	})
	return stateDir
}

// BackupsDir returns the backup directory under the state dir.
func BackupsDir() string {
	return filepath.Join(StateDir(), "backups")
}

// TxLogDir returns the transaction journal directory under the state dir.
func TxLogDir() string {
	return filepath.Join(StateDir(), "txlog")
}

// LogsDir returns the log file directory under the state dir.
func LogsDir() string {
	return filepath.Join(StateDir(), "logs")
}

// LimitsPath returns the path of the operator-tunable limits file.
func LimitsPath() string {
	return filepath.Join(StateDir(), "limits.yaml")
}

// EnsureStateDirs creates the state directory tree.
func EnsureStateDirs() error {
	for _, dir := range []string{StateDir(), BackupsDir(), TxLogDir(), LogsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
