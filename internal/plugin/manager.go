package plugin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ayusman/cookify/internal/log"
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager manages plugin discovery and access.
type Manager struct {
	pluginDir string
	plugins   map[string]*Plugin
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewManager creates a new plugin Manager with the given plugin directory.
func NewManager(pluginDir string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		plugins:   make(map[string]*Plugin),
		logger:    log.With("component", "plugin", "dir", pluginDir),
	}
}

// Discover rescans the plugin directory. Every subdirectory holding a valid
// manifest becomes a plugin; anything else is skipped. A missing plugin
// directory simply yields no plugins.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plugins = make(map[string]*Plugin)

	info, err := os.Stat(m.pluginDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginPath := filepath.Join(m.pluginDir, entry.Name())
		plugin, err := loadPlugin(pluginPath)
		if err != nil {
			if !os.IsNotExist(err) {
				m.logger.Warn("skipping plugin", "path", pluginPath, "error", err)
			}
			continue
		}

		m.plugins[plugin.Manifest.Name] = plugin
	}

	m.logger.Debug("plugins discovered", "count", len(m.plugins))
	return nil
}

func loadPlugin(pluginPath string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(pluginPath, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       pluginPath,
		Executable: filepath.Join(pluginPath, manifest.Executable),
	}, nil
}

// Get returns a plugin by name.
// Returns ErrPluginNotFound if the plugin does not exist.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}

	return plugin, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})

	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
