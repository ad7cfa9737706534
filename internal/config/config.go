// =============================================================================
// Packing List Ingest - Configuration Module
// =============================================================================
//
// This module loads the application configuration from a single YAML file.
// A missing file is not an error: every option has a default, so the engine
// can run with no configuration at all.
//
// CONFIGURATION SECTIONS:
//   1. Directories: where the process command reads, writes and archives
//   2. Logging: level and console formatting
//   3. Processing: concurrency, upload size limit, source retention
//   4. Parsing: date layouts and tabular reader overrides
//   5. Transformation rules: field-level normalization of the output
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultInputDir        = "./input"
	DefaultOutputDir       = "./output"
	DefaultInputArchiveDir = "./input_archive"
	DefaultLogLevel        = "info"
	DefaultOutputFormat    = "{uuid}.json"
	DefaultMaxConcurrency  = 4
	DefaultMaxUploadSize   = 20 << 20
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by the process command for packing lists.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives one JSON file per processed input.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives processed sources when KeepSource is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogPretty switches from JSON lines to zerolog's console writer.
	LogPretty bool `yaml:"log_pretty"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of files processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// MaxUploadSize is the largest input, in bytes, handed to the engine.
	// Default: 20 MiB
	MaxUploadSize int64 `yaml:"max_upload_size"`

	// OutputFormat is the output file name pattern.
	// Placeholders: {uuid}, {timestamp} (YYYYMMDD_HHMMSS), {name} (input
	// file name without extension).
	// Default: "{uuid}.json"
	OutputFormat string `yaml:"output_format"`

	// KeepSource moves processed inputs to InputArchiveDir instead of
	// deleting them.
	KeepSource bool `yaml:"keep_source"`

	// ArchiveTimestampSubdirs files archived inputs under YYYY/MM/DD
	// subdirectories of InputArchiveDir.
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs"`

	// =========================================================================
	// PARSING SETTINGS
	// =========================================================================

	// DateLayouts overrides the Go time layouts tried for date fields.
	// Empty uses the built-in list.
	DateLayouts []string `yaml:"date_layouts"`

	// Tabular holds spreadsheet reader overrides.
	Tabular TabularSettings `yaml:"tabular"`

	// =========================================================================
	// TRANSFORMATION RULES
	// =========================================================================

	// TransformationRules are applied to every payload after parsing.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`
}

// TabularSettings configures the grid reader.
type TabularSettings struct {
	// SheetName selects a worksheet. Empty means the first sheet.
	SheetName string `yaml:"sheet_name"`

	// Delimiter is the CSV field separator: ",", ";", "|" or "tab".
	// Default: ","
	Delimiter string `yaml:"delimiter"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines a transformation to apply to one output field.
type TransformationRule struct {
	// Field is the canonical JSON field name, e.g. "productCode",
	// "batchNumber" or "unit" (the unit part of productQuantity).
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "trim", "uppercase", "lowercase"
	//   - "prepend_string", "append_string"
	//   - "pad_zeros_to_length"
	//   - "replace", "regex_replace"
	//   - "lookup"
	Type string `yaml:"type"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value"`

	// Find is used for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values for "lookup".
	//
	// Example:
	//   lookup_table:
	//     "PCS": "PCE"
	//     "ST": "PCE"
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct. A missing file yields Default().
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = DefaultInputDir
	}
	if config.OutputDir == "" {
		config.OutputDir = DefaultOutputDir
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = DefaultInputArchiveDir
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.MaxUploadSize == 0 {
		config.MaxUploadSize = DefaultMaxUploadSize
	}
	if config.OutputFormat == "" {
		config.OutputFormat = DefaultOutputFormat
	}
	if config.Tabular.Delimiter == "" {
		config.Tabular.Delimiter = ","
	}
}

// validateMainConfig checks values that defaults cannot repair.
func validateMainConfig(config *MainConfig) error {
	if config.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative, got %d", config.MaxConcurrency)
	}
	if config.MaxUploadSize < 0 {
		return fmt.Errorf("max_upload_size must not be negative, got %d", config.MaxUploadSize)
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	if !strings.Contains(config.OutputFormat, "{uuid}") && !strings.Contains(config.OutputFormat, "{timestamp}") {
		return fmt.Errorf("output_format %q must contain {uuid} or {timestamp}", config.OutputFormat)
	}

	for i, rule := range config.TransformationRules {
		if rule.Field == "" {
			return fmt.Errorf("transformation_rules[%d]: field is required", i)
		}
		for j, action := range rule.Actions {
			if action.Type == "" {
				return fmt.Errorf("transformation_rules[%d].actions[%d]: type is required", i, j)
			}
		}
	}

	return nil
}

// EnsureDirectories creates the input, output and archive directories.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.OutputDir, c.InputArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
