package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed default_limits.yaml
var defaultLimitsTemplate string

// Limits carries the operator-tunable engine limits from limits.yaml.
// Zero fields fall back to built-in defaults at the point of use.
type Limits struct {
	BackupRetention        int   `yaml:"backup_retention"`
	MaxDistanceEvaluations int   `yaml:"max_distance_evaluations"`
	MaxSearchDurationMS    int   `yaml:"max_search_duration_ms"`
	MaxFuzzyTargetChars    int   `yaml:"max_fuzzy_target_chars"`
	MaxFileSizeBytes       int64 `yaml:"max_file_size_bytes"`
}

// MaxSearchDuration converts the configured millisecond budget.
func (l Limits) MaxSearchDuration() time.Duration {
	return time.Duration(l.MaxSearchDurationMS) * time.Millisecond
}

// LimitsStore loads limits.yaml, serves the current values, and hot
// reloads them when the file changes.
type LimitsStore struct {
	path    string
	mu      sync.RWMutex
	current Limits
	logger  logrus.FieldLogger
	watcher *fsnotify.Watcher
}

// NewLimitsStore ensures the limits file exists (writing the embedded
// defaults on first run), loads it, and starts a watcher for hot reload.
// A missing or malformed file never fails startup; the embedded defaults
// apply instead.
func NewLimitsStore(path string, logger logrus.FieldLogger) (*LimitsStore, error) {
	store := &LimitsStore{path: path, logger: logger}

	if err := store.ensureFile(); err != nil {
		logger.WithError(err).Warn("Failed to create default limits file, using embedded defaults")
	}
	store.reload()

	if err := store.startWatcher(); err != nil {
		logger.WithError(err).Warn("Failed to watch limits file, hot reload disabled")
	}
	return store, nil
}

// Current returns the limits as of the last successful load.
func (s *LimitsStore) Current() Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Close stops the file watcher.
func (s *LimitsStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *LimitsStore) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(defaultLimitsTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write default limits: %w", err)
	}
	s.logger.WithField("path", s.path).Debug("Created default limits file")
	return nil
}

// reload parses the limits file into the current values. Parse failures
// keep the embedded defaults (or the last good load) in effect.
func (s *LimitsStore) reload() {
	limits := defaultLimits()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warn("Failed to read limits file, using defaults")
		}
	} else if err := yaml.Unmarshal(data, &limits); err != nil {
		s.logger.WithError(err).Warn("Failed to parse limits file, using defaults")
		limits = defaultLimits()
	}

	s.mu.Lock()
	s.current = limits
	s.mu.Unlock()
}

func defaultLimits() Limits {
	var limits Limits
	// The embedded template is part of the build; a parse failure here is
	// a programming error and leaves the zero value, which the engine
	// treats as "use built-in constants".
	_ = yaml.Unmarshal([]byte(defaultLimitsTemplate), &limits)
	return limits
}

// startWatcher reloads on writes to the limits file. Watching the parent
// directory catches editors that replace the file via rename.
func (s *LimitsStore) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					s.reload()
					s.logger.WithField("path", s.path).Debug("Reloaded limits file")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.WithError(err).Debug("Limits file watcher error")
			}
		}
	}()
	return nil
}
