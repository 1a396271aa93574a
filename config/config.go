package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvGithubToken is the environment variable name for the GitHub API token
	EnvGithubToken = "MIRROR_GITHUB_TOKEN"

	// DefaultDatabasePath is used when the config names no database
	DefaultDatabasePath = "github_issues.db"

	envPrefix = "MIRROR"
)

// Config represents the application configuration
type Config struct {
	// GitHub API token for authentication (optional, can be set via MIRROR_GITHUB_TOKEN env var)
	GitHubToken string `mapstructure:"github_token" json:"github_token" yaml:"github_token"`

	// Path to the SQLite database file, relative to the config file
	DatabasePath string `mapstructure:"database_path" json:"database_path" yaml:"database_path"`

	// SQLite driver: "sqlite3" (cgo) or "sqlite" (pure Go)
	DatabaseDriver string `mapstructure:"database_driver" json:"database_driver" yaml:"database_driver"`

	// List of repositories to sync in the format "owner/name"
	Repositories []string `mapstructure:"repositories" json:"repositories" yaml:"repositories"`

	// Organizations whose repositories are all synced
	Organizations []string `mapstructure:"organizations" json:"organizations,omitempty" yaml:"organizations,omitempty"`

	LogLevel string `mapstructure:"log_level" json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Fetch changed-file stats for every pull request
	FetchFiles bool `mapstructure:"fetch_files" json:"fetch_files" yaml:"fetch_files"`

	// database path as written in the file, before resolution
	configuredDatabasePath string
	resolvedDatabasePath   string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("log_level", "info")
	v.SetDefault("fetch_files", true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("github_token", EnvGithubToken)
	return v
}

// LoadConfig loads the configuration from a JSON or YAML file. Settings can
// be overridden with MIRROR_-prefixed environment variables.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if config.DatabasePath == "" {
		config.DatabasePath = DefaultDatabasePath
	}

	// Make database path absolute if it's relative
	config.configuredDatabasePath = config.DatabasePath
	if config.DatabasePath != ":memory:" && !filepath.IsAbs(config.DatabasePath) {
		config.DatabasePath = filepath.Join(filepath.Dir(path), config.DatabasePath)
	}
	config.resolvedDatabasePath = config.DatabasePath

	return &config, nil
}

// SaveConfig saves the configuration, as YAML for .yaml/.yml paths and JSON
// otherwise. A database path resolved by LoadConfig is written back the way
// it was configured.
func SaveConfig(config *Config, path string) error {
	out := *config
	if config.resolvedDatabasePath != "" && config.DatabasePath == config.resolvedDatabasePath {
		out.DatabasePath = config.configuredDatabasePath
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&out)
	default:
		data, err = json.MarshalIndent(&out, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// AddRepository appends repo unless it is already listed. It reports whether
// the list changed.
func (c *Config) AddRepository(repo string) bool {
	for _, existing := range c.Repositories {
		if existing == repo {
			return false
		}
	}
	c.Repositories = append(c.Repositories, repo)
	return true
}

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	config := &Config{
		DatabasePath:   DefaultDatabasePath,
		DatabaseDriver: "sqlite3",
		Repositories:   []string{"example/repo"},
		LogLevel:       "info",
		FetchFiles:     true,
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return SaveConfig(config, path)
}
