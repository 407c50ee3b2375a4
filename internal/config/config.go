package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bsaff/better-reads/internal/feed"
	"github.com/bsaff/better-reads/internal/openlibrary"
)

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Goodreads   GoodreadsConfig   `yaml:"goodreads"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	OpenLibrary OpenLibraryConfig `yaml:"openlibrary"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type GoodreadsConfig struct {
	Host  string `yaml:"host"`
	Shelf string `yaml:"shelf"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

type OpenLibraryConfig struct {
	Host string `yaml:"host"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Database.Path != "" {
		cfg.Database.Path = expandPath(cfg.Database.Path)
	} else {
		cfg.Database.Path = defaultDatabasePath()
	}
	if cfg.Goodreads.Host == "" {
		cfg.Goodreads.Host = feed.DefaultBaseURL
	}
	if cfg.Goodreads.Shelf == "" {
		cfg.Goodreads.Shelf = "read"
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o"
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = 1500
	}
	if cfg.OpenLibrary.Host == "" {
		cfg.OpenLibrary.Host = openlibrary.DefaultBaseURL
	}
}

// Save writes configuration to file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "betterreads.db"
	}
	return filepath.Join(home, ".local", "share", "betterreads", "betterreads.db")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "betterreads", "config.yaml")
}
