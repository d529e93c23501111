// Package config loads and validates vaultkeep's YAML configuration file,
// following the same reader-based, environment-expanding loading style as
// the rest of the ambient stack.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a vaultkeep run.
type Config struct {
	Version string `yaml:"version"`

	// ObsidianPath is the root of the vault to scan.
	ObsidianPath string `yaml:"obsidian_path"`

	// OutputFolder receives the generated Markdown report. Empty means the
	// report is only held in memory / written to stdout.
	OutputFolder string `yaml:"output_folder"`

	// ApplyChanges gates whether the persistence stage is allowed to touch
	// the filesystem at all; false means every run is a dry run regardless
	// of the --dry-run flag.
	ApplyChanges bool `yaml:"apply_changes"`

	IgnoreFolders []string `yaml:"ignore_folders"`

	// DoNotBackPopulate lists literal strings that must never be replaced
	// by a wikilink, in addition to whatever a file's own frontmatter
	// `do_not_back_populate` list contributes.
	DoNotBackPopulate []string `yaml:"do_not_back_populate"`

	// BackPopulateFileFilter holds glob patterns over relative paths.
	// Validate checks that each pattern is well-formed; the maintenance
	// pass does not apply them, so every file is eligible for
	// back-population whatever this list holds.
	BackPopulateFileFilter []string `yaml:"back_populate_file_filter"`

	// FileProcessLimit caps how many files persist() is allowed to write
	// in a single run; zero means unlimited.
	FileProcessLimit int `yaml:"file_process_limit"`

	// OperationalTimezone is an IANA zone name used to validate and repair
	// date_created/date_modified frontmatter fields.
	OperationalTimezone string `yaml:"operational_timezone"`

	Frontmatter FrontmatterConfig `yaml:"frontmatter"`
	Batch       BatchConfig       `yaml:"batch"`
	Safety      SafetyConfig      `yaml:"safety"`
	Cache       CacheConfig       `yaml:"cache"`
}

// FrontmatterConfig contains frontmatter processing settings.
type FrontmatterConfig struct {
	RequiredFields []string  `yaml:"required_fields"`
	TypeRules      TypeRules `yaml:"type_rules"`
}

// TypeRules defines field type validation rules.
type TypeRules struct {
	Fields map[string]string `yaml:"fields"`
}

// BatchConfig contains worker-pool sizing for the scan/back-populate stages.
type BatchConfig struct {
	StopOnError  bool `yaml:"stop_on_error"`
	CreateBackup bool `yaml:"create_backup"`
	MaxWorkers   int  `yaml:"max_workers"`
}

// SafetyConfig contains backup retention settings for the persistence stage.
type SafetyConfig struct {
	BackupRetention string `yaml:"backup_retention"`
	MaxBackups      int    `yaml:"max_backups"`
}

// CacheConfig points at the on-disk content-hash cache database.
type CacheConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// LoadConfig loads configuration from a reader with environment variable
// expansion.
func LoadConfig(reader io.Reader) (*Config, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expandedContent := expandEnvVars(string(content))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandedContent), config); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	return config, nil
}

// LoadConfigFromFile loads configuration from a file.
func LoadConfigFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %s: %w", path, err)
	}
	defer file.Close()

	return LoadConfig(file)
}

// LoadConfigWithFallback tries to load config from multiple paths, returns
// default if none found.
func LoadConfigWithFallback(paths []string) (*Config, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return LoadConfigFromFile(path)
		}
	}

	return DefaultConfig(), nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:      "1.0",
		ObsidianPath: "",
		OutputFolder: "",
		ApplyChanges: false,
		IgnoreFolders: []string{
			".obsidian",
			".trash",
		},
		DoNotBackPopulate:      []string{},
		BackPopulateFileFilter: []string{},
		FileProcessLimit:       0,
		OperationalTimezone:    "America/New_York",
		Frontmatter: FrontmatterConfig{
			RequiredFields: []string{},
			TypeRules: TypeRules{
				Fields: make(map[string]string),
			},
		},
		Batch: BatchConfig{
			StopOnError:  false,
			CreateBackup: true,
			MaxWorkers:   4,
		},
		Safety: SafetyConfig{
			BackupRetention: "24h",
			MaxBackups:      50,
		},
		Cache: CacheConfig{
			Path:    "",
			Enabled: true,
		},
	}
}

// GetDefaultConfigPaths returns default configuration file paths to search.
func GetDefaultConfigPaths() []string {
	homeDir, _ := os.UserHomeDir()
	currentDir, _ := os.Getwd()

	return []string{
		filepath.Join(currentDir, ".vaultkeep.yaml"),
		filepath.Join(currentDir, "vaultkeep.yaml"),
		filepath.Join(homeDir, ".config", "vaultkeep", "config.yaml"),
		filepath.Join(homeDir, ".vaultkeep.yaml"),
		"/etc/vaultkeep/config.yaml",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.ObsidianPath == "" {
		return fmt.Errorf("obsidian_path is required")
	}
	if _, err := os.Stat(c.ObsidianPath); err != nil {
		return fmt.Errorf("obsidian_path %q is not accessible: %w", c.ObsidianPath, err)
	}

	if c.OperationalTimezone != "" {
		if _, err := time.LoadLocation(c.OperationalTimezone); err != nil {
			return fmt.Errorf("invalid operational_timezone %q: %w", c.OperationalTimezone, err)
		}
	}

	validTypes := map[string]bool{
		"string":  true,
		"number":  true,
		"boolean": true,
		"array":   true,
		"date":    true,
		"object":  true,
	}
	for field, fieldType := range c.Frontmatter.TypeRules.Fields {
		if !validTypes[fieldType] {
			return fmt.Errorf("invalid type %q for field %q", fieldType, field)
		}
	}

	if c.Safety.BackupRetention != "" {
		if _, err := time.ParseDuration(c.Safety.BackupRetention); err != nil {
			return fmt.Errorf("invalid backup retention duration: %w", err)
		}
	}

	if c.FileProcessLimit < 0 {
		return fmt.Errorf("file_process_limit must not be negative")
	}

	for _, pattern := range c.BackPopulateFileFilter {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("invalid back_populate_file_filter pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one, with the other config taking
// precedence for any non-zero field.
func (c *Config) Merge(other Config) *Config {
	result := *c

	if other.Version != "" {
		result.Version = other.Version
	}
	if other.ObsidianPath != "" {
		result.ObsidianPath = other.ObsidianPath
	}
	if other.OutputFolder != "" {
		result.OutputFolder = other.OutputFolder
	}
	if other.OperationalTimezone != "" {
		result.OperationalTimezone = other.OperationalTimezone
	}
	result.ApplyChanges = other.ApplyChanges || c.ApplyChanges
	if len(other.IgnoreFolders) > 0 {
		result.IgnoreFolders = other.IgnoreFolders
	}
	if len(other.DoNotBackPopulate) > 0 {
		result.DoNotBackPopulate = other.DoNotBackPopulate
	}
	if len(other.BackPopulateFileFilter) > 0 {
		result.BackPopulateFileFilter = other.BackPopulateFileFilter
	}
	if other.FileProcessLimit != 0 {
		result.FileProcessLimit = other.FileProcessLimit
	}

	if len(other.Frontmatter.RequiredFields) > 0 {
		result.Frontmatter.RequiredFields = other.Frontmatter.RequiredFields
	}
	if len(other.Frontmatter.TypeRules.Fields) > 0 {
		if result.Frontmatter.TypeRules.Fields == nil {
			result.Frontmatter.TypeRules.Fields = make(map[string]string)
		}
		for k, v := range other.Frontmatter.TypeRules.Fields {
			result.Frontmatter.TypeRules.Fields[k] = v
		}
	}

	if other.Batch.MaxWorkers != 0 {
		result.Batch.MaxWorkers = other.Batch.MaxWorkers
	}
	if other.Safety.BackupRetention != "" {
		result.Safety.BackupRetention = other.Safety.BackupRetention
	}
	if other.Safety.MaxBackups != 0 {
		result.Safety.MaxBackups = other.Safety.MaxBackups
	}
	if other.Cache.Path != "" {
		result.Cache.Path = other.Cache.Path
	}

	return &result
}

// expandEnvVars expands environment variables in the format ${VAR_NAME}.
func expandEnvVars(content string) string {
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)

	return pattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ExpandPath expands a leading `~` to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
