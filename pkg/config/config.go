// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schedlens/schedlens/pkg/parser"
)

// Config holds all SchedLens configuration.
type Config struct {
	Version int `yaml:"version"`

	Parser      parser.Config     `yaml:"parser"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Snapshots   SnapshotsConfig   `yaml:"snapshots"`
	Store       StoreConfig       `yaml:"store"`
	Checkpoint  CheckpointConfig  `yaml:"checkpoint"`
	Upload      UploadConfig      `yaml:"upload"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ClassifierConfig points at the external ruleset.
type ClassifierConfig struct {
	// RulesPath is a YAML ruleset file. Empty means the built-in
	// reference ruleset.
	RulesPath string `yaml:"rules_path"`
}

// AggregationConfig controls metric computation.
type AggregationConfig struct {
	// BucketWidth is the trend bucket width in log time units.
	BucketWidth int64 `yaml:"bucket_width"`
}

// Duration wraps time.Duration so YAML values like "30s" decode.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// PipelineConfig controls run execution.
type PipelineConfig struct {
	Workers     int      `yaml:"workers"`
	BufferSize  int      `yaml:"buffer_size"`
	OpenTimeout Duration `yaml:"open_timeout"`
}

// SnapshotsConfig locates externally captured dashboard imagery.
type SnapshotsConfig struct {
	Dir string `yaml:"dir"`
}

// StoreConfig controls the drill-down event store.
type StoreConfig struct {
	// Database is the DuckDB file path; empty disables the store.
	Database string `yaml:"database"`
}

// CheckpointConfig controls resumable-progress tracking.
type CheckpointConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"` // file | redis
	Dir     string `yaml:"dir"`
	Redis   struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"redis"`
}

// UploadConfig controls report artifact upload to S3.
type UploadConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

// TelemetryConfig for optional trace export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".schedlens")

	return &Config{
		Version: 1,
		Parser:  parser.DefaultConfig(),
		Aggregation: AggregationConfig{
			BucketWidth: 3600,
		},
		Pipeline: PipelineConfig{
			Workers:     1,
			BufferSize:  4096,
			OpenTimeout: Duration(30 * time.Second),
		},
		Snapshots: SnapshotsConfig{
			Dir: filepath.Join(baseDir, "snapshots"),
		},
		Checkpoint: CheckpointConfig{
			Backend: "file",
			Dir:     filepath.Join(baseDir, "checkpoints"),
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	config *Config
	paths  []string
}

// NewManager creates a configuration manager holding defaults.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.config = Default()

	for _, path := range m.configPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("config: %s: %w", path, err)
			}
			continue
		}
		m.paths = append(m.paths, path)
	}

	m.loadEnv()
	return nil
}

// LoadFile merges one explicit config file over the current state.
func (m *Manager) LoadFile(path string) error {
	if err := m.loadFile(path); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	m.paths = append(m.paths, path)
	return nil
}

// configPaths returns config file paths in priority order.
func (m *Manager) configPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/schedlens/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".schedlens", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".schedlens.yaml"))
	}
	return paths
}

// loadFile loads a single config file and merges it.
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

// merge merges non-zero values from src into the current config.
func (m *Manager) merge(src *Config) {
	c := m.config

	if src.Parser.Delimiter != "" {
		c.Parser.Delimiter = src.Parser.Delimiter
	}
	if src.Parser.KVSeparator != "" {
		c.Parser.KVSeparator = src.Parser.KVSeparator
	}
	if len(src.Parser.RequiredFields) > 0 {
		c.Parser.RequiredFields = src.Parser.RequiredFields
	}
	if src.Parser.TaskIDField != "" {
		c.Parser.TaskIDField = src.Parser.TaskIDField
	}
	if src.Parser.TaskTypeField != "" {
		c.Parser.TaskTypeField = src.Parser.TaskTypeField
	}
	if src.Parser.TimestampField != "" {
		c.Parser.TimestampField = src.Parser.TimestampField
	}
	if src.Parser.ScheduleField != "" {
		c.Parser.ScheduleField = src.Parser.ScheduleField
	}
	if src.Parser.OutcomeField != "" {
		c.Parser.OutcomeField = src.Parser.OutcomeField
	}
	if src.Parser.DurationField != "" {
		c.Parser.DurationField = src.Parser.DurationField
	}
	if src.Parser.TimestampLayout != "" {
		c.Parser.TimestampLayout = src.Parser.TimestampLayout
	}
	if src.Parser.ScheduleRangeSep != "" {
		c.Parser.ScheduleRangeSep = src.Parser.ScheduleRangeSep
	}

	if src.Classifier.RulesPath != "" {
		c.Classifier.RulesPath = src.Classifier.RulesPath
	}
	if src.Aggregation.BucketWidth != 0 {
		c.Aggregation.BucketWidth = src.Aggregation.BucketWidth
	}
	if src.Pipeline.Workers != 0 {
		c.Pipeline.Workers = src.Pipeline.Workers
	}
	if src.Pipeline.BufferSize != 0 {
		c.Pipeline.BufferSize = src.Pipeline.BufferSize
	}
	if src.Pipeline.OpenTimeout != 0 {
		c.Pipeline.OpenTimeout = src.Pipeline.OpenTimeout
	}
	if src.Snapshots.Dir != "" {
		c.Snapshots.Dir = src.Snapshots.Dir
	}
	if src.Store.Database != "" {
		c.Store.Database = src.Store.Database
	}
	if src.Checkpoint.Enabled {
		c.Checkpoint.Enabled = true
	}
	if src.Checkpoint.Backend != "" {
		c.Checkpoint.Backend = src.Checkpoint.Backend
	}
	if src.Checkpoint.Dir != "" {
		c.Checkpoint.Dir = src.Checkpoint.Dir
	}
	if src.Checkpoint.Redis.Addr != "" {
		c.Checkpoint.Redis.Addr = src.Checkpoint.Redis.Addr
	}
	if src.Checkpoint.Redis.DB != 0 {
		c.Checkpoint.Redis.DB = src.Checkpoint.Redis.DB
	}
	if src.Upload.Enabled {
		c.Upload.Enabled = true
	}
	if src.Upload.Bucket != "" {
		c.Upload.Bucket = src.Upload.Bucket
	}
	if src.Upload.Prefix != "" {
		c.Upload.Prefix = src.Upload.Prefix
	}
	if src.Upload.Region != "" {
		c.Upload.Region = src.Upload.Region
	}
	if src.Telemetry.Enabled {
		c.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		c.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Logging.Level != "" {
		c.Logging.Level = src.Logging.Level
	}
}

// loadEnv loads configuration overrides from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("SCHEDLENS_RULES"); v != "" {
		m.config.Classifier.RulesPath = v
	}
	if v := os.Getenv("SCHEDLENS_BUCKET_WIDTH"); v != "" {
		if w, err := strconv.ParseInt(v, 10, 64); err == nil {
			m.config.Aggregation.BucketWidth = w
		}
	}
	if v := os.Getenv("SCHEDLENS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Pipeline.Workers = n
		}
	}
	if v := os.Getenv("SCHEDLENS_DATABASE"); v != "" {
		m.config.Store.Database = v
	}
	if v := os.Getenv("SCHEDLENS_LOG_LEVEL"); v != "" {
		m.config.Logging.Level = v
	}
	if v := os.Getenv("SCHEDLENS_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// Paths returns the config files that were loaded.
func (m *Manager) Paths() []string {
	return m.paths
}
