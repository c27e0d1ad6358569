package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanchriswhite/screenreel/internal/logger"
	"gopkg.in/yaml.v3"
)

// Defaults are the persisted user preferences applied to every recording
// unless overridden by flags.
type Defaults struct {
	Bitrate    int    `json:"bitrate" yaml:"bitrate"`
	FrameRate  int    `json:"frame_rate" yaml:"frame_rate"`
	Encoder    string `json:"encoder" yaml:"encoder"`
	OutputPath string `json:"output_path" yaml:"output_path"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
	StatusAddr string `json:"status_addr" yaml:"status_addr"`
}

// Manager handles loading and saving the defaults file.
type Manager struct {
	configPath string
	defaults   *Defaults
	mu         sync.RWMutex
}

// NewManager creates a configuration manager. When configFile is empty the
// default path under ~/.config/screenreel is used; a missing file is created
// with defaults.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "screenreel")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configPath: actualConfigPath}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.defaults = getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return m, nil
}

func getDefaults() *Defaults {
	return &Defaults{
		Bitrate:    15_000_000,
		FrameRate:  60,
		Encoder:    EncoderFFmpeg,
		OutputPath: "video.mp4",
		LogLevel:   "info",
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	defaults := getDefaults()
	if err := yaml.Unmarshal(data, defaults); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	m.mu.Lock()
	m.defaults = defaults
	m.mu.Unlock()
	return nil
}

// Save writes the current defaults to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.defaults)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Get returns a copy of the current defaults.
func (m *Manager) Get() Defaults {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.defaults
}

// Update replaces the defaults and persists them.
func (m *Manager) Update(d Defaults) error {
	m.mu.Lock()
	m.defaults = &d
	m.mu.Unlock()
	return m.Save()
}

// GetConfigPath returns the path of the loaded config file.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
