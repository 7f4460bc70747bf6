package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"conduit/pkg/logging"
)

// ErrKeyNotFound is returned by Get for keys absent from both the
// loaded file and the runtime overrides.
var ErrKeyNotFound = errors.New("config key not found")

// defaults are the built-in values underneath everything loaded from
// the file. Keys are dotted paths.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"coordinator": map[string]interface{}{
			"metrics_interval_seconds": 30,
		},
		"registry": map[string]interface{}{
			"health_interval_seconds": 30,
			"probe_timeout_seconds":   5,
		},
		"gateway": map[string]interface{}{
			"handler_timeout_seconds": 30,
			"rate_limit": map[string]interface{}{
				"limit":          100,
				"window_seconds": 60,
			},
		},
	}
}

// Manager loads a YAML config file, answers dotted-key lookups, accepts
// runtime overrides, and optionally watches the file for changes.
// Runtime overrides survive a file reload.
type Manager struct {
	path string

	mu         sync.RWMutex
	fileValues map[string]interface{}
	overrides  map[string]interface{} // flat dotted keys
	loadedAt   time.Time

	watcher *fileWatcher
}

// NewManager creates a manager for the given config file path. The file
// is not read until Load is called; a missing file is not an error, the
// built-in defaults apply.
func NewManager(path string) *Manager {
	m := &Manager{
		path:       path,
		fileValues: defaults(),
		overrides:  make(map[string]interface{}),
	}
	m.watcher = newFileWatcher(m)
	return m
}

// Load reads the config file and merges it over the defaults. A missing
// file leaves the defaults in place.
func (m *Manager) Load() error {
	values := defaults()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config file at %s, using defaults", m.path)
			m.setFileValues(values)
			return nil
		}
		return fmt.Errorf("reading config %s: %w", m.path, err)
	}

	var loaded map[string]interface{}
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing config %s: %w", m.path, err)
	}

	merge(values, loaded)
	m.setFileValues(values)
	logging.Info("Config", "Loaded configuration from %s", m.path)
	return nil
}

func (m *Manager) setFileValues(values map[string]interface{}) {
	m.mu.Lock()
	m.fileValues = values
	m.loadedAt = time.Now()
	m.mu.Unlock()
}

// merge overlays src onto dst, descending into nested maps.
func merge(dst, src map[string]interface{}) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]interface{}); ok {
			if dstMap, ok := dst[key].(map[string]interface{}); ok {
				merge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}

// Get resolves a dotted key. Runtime overrides shadow file values.
func (m *Manager) Get(key string) (interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if value, ok := m.overrides[key]; ok {
		return value, nil
	}
	if value, ok := lookup(m.fileValues, key); ok {
		return value, nil
	}
	return nil, fmt.Errorf("%s: %w", key, ErrKeyNotFound)
}

// GetInt resolves a dotted key as an int, falling back to def when the
// key is absent or not numeric.
func (m *Manager) GetInt(key string, def int) int {
	value, err := m.Get(key)
	if err != nil {
		return def
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Set stores a runtime override for a dotted key. Overrides are process
// memory only; they are never written back to the file.
func (m *Manager) Set(key string, value interface{}) {
	m.mu.Lock()
	m.overrides[key] = value
	m.mu.Unlock()
	logging.Debug("Config", "Set %s", key)
}

// lookup walks a nested map by dotted path.
func lookup(values map[string]interface{}, key string) (interface{}, bool) {
	parts := strings.Split(key, ".")
	current := values
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return value, true
		}
		current, ok = value.(map[string]interface{})
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

// Summary describes the manager's state for the /api/config endpoint.
// Values themselves are not exposed.
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"path":      m.path,
		"keys":      len(m.fileValues),
		"overrides": len(m.overrides),
		"watching":  m.watcher.Watching(),
		"loadedAt":  m.loadedAt,
	}
}

// StartWatching begins reloading the config file on filesystem changes.
func (m *Manager) StartWatching() error {
	return m.watcher.Start()
}

// StopWatching stops the file watcher.
func (m *Manager) StopWatching() {
	m.watcher.Stop()
}

// Cleanup stops watching and drops runtime overrides.
func (m *Manager) Cleanup() {
	m.watcher.Stop()
	m.mu.Lock()
	m.overrides = make(map[string]interface{})
	m.mu.Unlock()
}
