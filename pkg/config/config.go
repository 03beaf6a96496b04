// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all logtab configuration.
type Config struct {
	Version int `yaml:"version"`

	Conversion ConversionConfig `yaml:"conversion"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ConversionConfig controls default conversion behavior.
type ConversionConfig struct {
	Mode        string `yaml:"mode"`         // wide | long
	Collision   string `yaml:"collision"`    // prefix | error
	Compression string `yaml:"compression"`  // snappy | zstd | gzip | lz4 | none
	ChunkSize   int    `yaml:"chunk_size"`   // rows per output file
	WriteIndex  bool   `yaml:"write_index"`  // emit row-position sidecar
}

// CheckpointConfig controls batch resume behavior.
type CheckpointConfig struct {
	Backend string        `yaml:"backend"` // file | redis | s3
	Dir     string        `yaml:"dir"`
	Redis   string        `yaml:"redis"`   // address for the redis backend
	Bucket  string        `yaml:"bucket"`  // bucket for the s3 backend
	Region  string        `yaml:"region"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	logtabDir := filepath.Join(homeDir, ".logtab")

	return &Config{
		Version: 1,
		Conversion: ConversionConfig{
			Mode:        "wide",
			Collision:   "prefix",
			Compression: "snappy",
			ChunkSize:   50_000,
		},
		Checkpoint: CheckpointConfig{
			Backend: "file",
			Dir:     filepath.Join(logtabDir, "checkpoints"),
			MaxAge:  7 * 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a manager holding the defaults.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load merges configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range configPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			continue
		}
		m.paths = append(m.paths, path)
	}

	m.loadEnv()
	return nil
}

// configPaths returns config file paths in priority order.
func configPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/logtab/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".logtab", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".logtab.yaml"))
	}
	return paths
}

func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}
	m.merge(&partial)
	return nil
}

// merge overlays non-zero values from src.
func (m *Manager) merge(src *Config) {
	if src.Conversion.Mode != "" {
		m.config.Conversion.Mode = src.Conversion.Mode
	}
	if src.Conversion.Collision != "" {
		m.config.Conversion.Collision = src.Conversion.Collision
	}
	if src.Conversion.Compression != "" {
		m.config.Conversion.Compression = src.Conversion.Compression
	}
	if src.Conversion.ChunkSize != 0 {
		m.config.Conversion.ChunkSize = src.Conversion.ChunkSize
	}
	if src.Conversion.WriteIndex {
		m.config.Conversion.WriteIndex = true
	}

	if src.Checkpoint.Backend != "" {
		m.config.Checkpoint.Backend = src.Checkpoint.Backend
	}
	if src.Checkpoint.Dir != "" {
		m.config.Checkpoint.Dir = src.Checkpoint.Dir
	}
	if src.Checkpoint.Redis != "" {
		m.config.Checkpoint.Redis = src.Checkpoint.Redis
	}
	if src.Checkpoint.Bucket != "" {
		m.config.Checkpoint.Bucket = src.Checkpoint.Bucket
	}
	if src.Checkpoint.Region != "" {
		m.config.Checkpoint.Region = src.Checkpoint.Region
	}
	if src.Checkpoint.MaxAge != 0 {
		m.config.Checkpoint.MaxAge = src.Checkpoint.MaxAge
	}

	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
}

func (m *Manager) loadEnv() {
	if v := os.Getenv("LOGTAB_MODE"); v != "" {
		m.config.Conversion.Mode = v
	}
	if v := os.Getenv("LOGTAB_COMPRESSION"); v != "" {
		m.config.Conversion.Compression = v
	}
	if v := os.Getenv("LOGTAB_CHECKPOINT_BACKEND"); v != "" {
		m.config.Checkpoint.Backend = v
	}
	if v := os.Getenv("LOGTAB_REDIS"); v != "" {
		m.config.Checkpoint.Redis = v
	}
	if v := os.Getenv("LOGTAB_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Endpoint = v
		m.config.Telemetry.Enabled = true
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Paths returns the config files that were loaded.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	dir := filepath.Join(home, ".logtab")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}

var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the process-wide configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
