package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/presto/internal/providers/github"
	"github.com/presto/internal/providers/gitlab"
)

// Config represents the application configuration
type Config struct {
	General struct {
		DefaultProvider string `koanf:"default_provider"`
		SessionsDir     string `koanf:"sessions_dir"`
		LogLevel        string `koanf:"log_level"`
	} `koanf:"general"`

	GitHub github.Config `koanf:"github"`
	GitLab gitlab.Config `koanf:"gitlab"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"general.default_provider": "github",
		"general.sessions_dir":     ".",
		"general.log_level":        "info",
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations
		defaultPaths := []string{"./presto.toml", "$HOME/.presto.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix PRESTO_
	k.Load(env.Provider("PRESTO_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PRESTO_")), "_", ".", 1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# Presto Configuration

[general]
default_provider = "github"
sessions_dir = "."
log_level = "info"

[github]
token = "your-github-token"
repo = "owner/repo"

[gitlab]
url = "https://gitlab.example.com"
token = "your-gitlab-token"
project = "group/project"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	switch config.General.DefaultProvider {
	case "github":
		if config.GitHub.Token == "" {
			return fmt.Errorf("github token is required")
		}
		if config.GitHub.Repo == "" {
			return fmt.Errorf("github repo is required")
		}
	case "gitlab":
		if config.GitLab.Token == "" {
			return fmt.Errorf("gitlab token is required")
		}
		if config.GitLab.Project == "" {
			return fmt.Errorf("gitlab project is required")
		}
	case "":
		return fmt.Errorf("default provider is required")
	default:
		return fmt.Errorf("unsupported provider: %s", config.General.DefaultProvider)
	}

	return nil
}
