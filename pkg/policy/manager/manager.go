package manager

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"draftline-hq/meridian/pkg/policy"
)

// Manager loads shared default runtime policies from YAML files and
// composes them with each run envelope's own declaration. Organizations
// keep base policies (budget guards, compliance HITL gates) in a directory;
// every run gets them appended after its own policies, so envelope-authored
// policies keep priority.
type Manager struct {
	dir    string
	logger *slog.Logger

	mu       sync.RWMutex
	defaults []policy.RawRuntimePolicy
}

// New creates a manager for the given defaults directory. The directory may
// be empty or absent; Load then yields no defaults.
func New(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default().With("component", "policy.manager")
	}
	return &Manager{dir: dir, logger: logger}
}

// Load reads every .yaml/.yml file in the defaults directory, in lexical
// order for determinism, and replaces the current default set atomically.
// Files that fail to decode are skipped with a warning so one bad file
// cannot take down the shared defaults.
func (m *Manager) Load() error {
	if m.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot read defaults directory %q: %w", m.dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		files = append(files, filepath.Join(m.dir, entry.Name()))
	}
	sort.Strings(files)

	var defaults []policy.RawRuntimePolicy
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			m.logger.Warn("skipping unreadable defaults file",
				"path", file,
				"error", err,
			)
			continue
		}

		raw, err := policy.DecodeYAML(data)
		if err != nil {
			m.logger.Warn("skipping malformed defaults file",
				"path", file,
				"error", err,
			)
			continue
		}

		defaults = append(defaults, raw.Runtime...)
	}

	m.mu.Lock()
	m.defaults = defaults
	m.mu.Unlock()

	m.logger.Info("default policies loaded",
		"dir", m.dir,
		"file_count", len(files),
		"policy_count", len(defaults),
	)

	return nil
}

// Defaults returns a copy of the current default policy list.
func (m *Manager) Defaults() []policy.RawRuntimePolicy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]policy.RawRuntimePolicy, len(m.defaults))
	copy(out, m.defaults)
	return out
}

// Compose returns a new raw declaration with the shared defaults appended
// after the envelope's own runtime policies. The input is not mutated.
func (m *Manager) Compose(raw *policy.RawTaskPolicies) *policy.RawTaskPolicies {
	if raw == nil {
		raw = &policy.RawTaskPolicies{}
	}

	defaults := m.Defaults()
	if len(defaults) == 0 {
		return raw
	}

	composed := *raw
	composed.Runtime = make([]policy.RawRuntimePolicy, 0, len(raw.Runtime)+len(defaults))
	composed.Runtime = append(composed.Runtime, raw.Runtime...)
	composed.Runtime = append(composed.Runtime, defaults...)
	return &composed
}
