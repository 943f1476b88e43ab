package cliconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// EnvServerURL overrides server.url from the config file.
	EnvServerURL = "PMCTL_SERVER_URL"

	DefaultServerURL = "http://localhost:8080"
	DefaultLogLevel  = "info"
)

// Config holds the pmctl configuration stored in ~/.pmctl/config.yaml
type Config struct {
	Server struct {
		URL string `yaml:"url"`
	} `yaml:"server"`
	Downloads struct {
		Directory string `yaml:"directory"`
	} `yaml:"downloads"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// GetConfigDir returns the directory holding the pmctl config file.
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pmctl")
}

// GetConfigPath returns the path of the config file.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Default returns the configuration written by `pmctl init`.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.URL = DefaultServerURL
	cfg.Downloads.Directory = filepath.Join(GetConfigDir(), "downloads")
	cfg.Logging.Level = DefaultLogLevel
	return cfg
}

// Load reads the config file if present, applies environment overrides
// and validates the result. A missing file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(GetConfigPath())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", GetConfigPath(), err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if serverURL := os.Getenv(EnvServerURL); serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server URL cannot be empty")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL must use http or https scheme, got %q", c.Server.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("server URL must include a host, got %q", c.Server.URL)
	}
	return nil
}

// IsInsecure reports whether credentials would travel in clear text,
// i.e. plain http to anything but a loopback address.
func (c *Config) IsInsecure() bool {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return false
	}
	return true
}

// Save writes the configuration to GetConfigPath, creating the directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(GetConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(GetConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
