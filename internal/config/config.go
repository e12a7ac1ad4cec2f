// =============================================================================
// FeliCa Ledger - Configuration
// =============================================================================
//
// Configuration is a single YAML file (config.yaml by default):
//
//   input_dir: ./input                # card dumps waiting to be processed
//   output_dir: ./output              # generated ledger documents
//   input_archive_dir: ./input_archive
//   log_dir: ./logs                   # per-batch summary and error logs
//   stations_file: ./data/stationcodes.json
//   output_format: csv                # csv | xml | xlsx | json
//   output_name_format: "{card}_{timestamp}_{uuid}{ext}"
//   history_count: 11                 # history slots read per scan (2-20)
//   keep_undated: false
//   log_level: info
//   max_concurrency: 4
//   continue_on_error: true
//   server:
//     address: ":8080"
//   archive:
//     mongo_uri: ""                   # empty disables the snapshot archive
//     database: felica
//     collection: snapshots
//   upload:
//     bucket: ""                      # empty disables GCS upload
//     prefix: ledgers/
//
// Every key can be overridden by an environment variable with the FELICA_
// prefix, dots replaced by underscores (FELICA_SERVER_ADDRESS).
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported output formats.
var OutputFormats = []string{"csv", "xml", "xlsx", "json"}

// Bounds for history_count.
const (
	MinHistoryCount = 2
	MaxHistoryCount = 20
)

// =============================================================================
// CONFIGURATION STRUCTURES
// =============================================================================

// MainConfig is the application configuration.
type MainConfig struct {
	// Directory settings.
	InputDir        string `yaml:"input_dir"`
	OutputDir       string `yaml:"output_dir"`
	InputArchiveDir string `yaml:"input_archive_dir"`
	LogDir          string `yaml:"log_dir"`

	// StationsFile is the station reference dataset (.json, .csv, .tsv,
	// .xlsx). Empty means station names are never resolved.
	StationsFile string `yaml:"stations_file"`

	// Output settings.
	OutputFormat string `yaml:"output_format"`

	// OutputNameFormat builds output file names. Placeholders: {card} (dump
	// file name without extension), {timestamp}, {uuid}, {ext}.
	OutputNameFormat string `yaml:"output_name_format"`

	// Scan settings.
	HistoryCount int  `yaml:"history_count"`
	KeepUndated  bool `yaml:"keep_undated"`

	LogLevel string `yaml:"log_level"`

	// Processing settings.
	MaxConcurrency  int  `yaml:"max_concurrency"`
	ContinueOnError bool `yaml:"continue_on_error"`

	Server  ServerConfig  `yaml:"server"`
	Archive ArchiveConfig `yaml:"archive"`
	Upload  UploadConfig  `yaml:"upload"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// ArchiveConfig configures the MongoDB snapshot archive.
type ArchiveConfig struct {
	MongoURI   string `yaml:"mongo_uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Enabled reports whether a Mongo URI is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.MongoURI != ""
}

// UploadConfig configures uploading generated files to Cloud Storage.
type UploadConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Enabled reports whether a bucket is configured.
func (u UploadConfig) Enabled() bool {
	return u.Bucket != ""
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *MainConfig {
	config := &MainConfig{ContinueOnError: true}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig reads, defaults and validates the YAML file at configPath.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	config := Default()
	if err := decodeFile(configPath, config); err != nil {
		return nil, err
	}

	applyMainConfigDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// decodeFile unmarshals configPath over config. Keys missing from the file
// keep their current values.
func decodeFile(configPath string, config *MainConfig) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyMainConfigDefaults sets defaults for unset options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.LogDir == "" {
		config.LogDir = "./logs"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "csv"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{card}_{timestamp}_{uuid}{ext}"
	}
	if config.HistoryCount == 0 {
		config.HistoryCount = 11
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Archive.Database == "" {
		config.Archive.Database = "felica"
	}
	if config.Archive.Collection == "" {
		config.Archive.Collection = "snapshots"
	}
}

// Validate checks option values. It does not touch the filesystem.
func (c *MainConfig) Validate() error {
	c.OutputFormat = strings.ToLower(c.OutputFormat)

	valid := false
	for _, f := range OutputFormats {
		if c.OutputFormat == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("output_format %q must be one of %s", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}

	if c.HistoryCount < MinHistoryCount || c.HistoryCount > MaxHistoryCount {
		return fmt.Errorf("history_count %d must be between %d and %d", c.HistoryCount, MinHistoryCount, MaxHistoryCount)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1")
	}
	if !strings.Contains(c.OutputNameFormat, "{uuid}") && !strings.Contains(c.OutputNameFormat, "{timestamp}") {
		return fmt.Errorf("output_name_format must contain {uuid} or {timestamp}")
	}
	return nil
}

// EnsureDirs creates the working directories used by batch processing.
func (c *MainConfig) EnsureDirs() error {
	for _, dir := range []string{c.InputDir, c.OutputDir, c.InputArchiveDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
