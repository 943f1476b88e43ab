package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withHome isolates the config directory and clears the env override.
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvServerURL, "")
	return home
}

func writeConfig(t *testing.T, home, body string) {
	t.Helper()
	dir := filepath.Join(home, ".pmctl")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.Server.URL)
	assert.Equal(t, filepath.Join(home, ".pmctl", "downloads"), cfg.Downloads.Directory)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)

	_, err = os.Stat(GetConfigPath())
	assert.True(t, os.IsNotExist(err), "Load must not create the file")
}

func TestLoad_FromFile(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, "server:\n  url: https://hub.example.com\ndownloads:\n  directory: /srv/hub\nlogging:\n  level: debug\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://hub.example.com", cfg.Server.URL)
	assert.Equal(t, "/srv/hub", cfg.Downloads.Directory)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, "server:\n  url: https://hub.example.com\nlogging:\n  level: \"\"\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://hub.example.com", cfg.Server.URL)
	assert.Equal(t, filepath.Join(home, ".pmctl", "downloads"), cfg.Downloads.Directory)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, "server:\n  url: https://hub.example.com\n")
	t.Setenv(EnvServerURL, "http://127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Server.URL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     string
		wantErr string
	}{
		{"malformed yaml", "server: [oops", "", "failed to parse"},
		{"bad scheme in file", "server:\n  url: ftp://hub.example.com\n", "", "http or https"},
		{"bad scheme in env", "", "ftp://hub.example.com", "http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := withHome(t)
			if tt.file != "" {
				writeConfig(t, home, tt.file)
			}
			t.Setenv(EnvServerURL, tt.env)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSave_ThenLoad(t *testing.T) {
	home := withHome(t)

	cfg := Default()
	cfg.Server.URL = "https://api.example.com:8443"
	cfg.Logging.Level = "warn"
	require.NoError(t, cfg.Save())
	assert.Equal(t, filepath.Join(home, ".pmctl", "config.yaml"), GetConfigPath())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr string
	}{
		{"http://localhost:8080", ""},
		{"https://api.example.com", ""},
		{"https://api.example.com:8443", ""},
		{"", "cannot be empty"},
		{"ftp://example.com", "http or https"},
		{"example.com:8080", "http or https"},
		{"http://", "must include a host"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := &Config{}
			cfg.Server.URL = tt.url
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsInsecure(t *testing.T) {
	tests := map[string]bool{
		"http://localhost:8080":       false,
		"http://127.0.0.1:8080":       false,
		"http://[::1]:8080":           false,
		"https://api.example.com":     false,
		"http://api.example.com":      true,
		"http://api.example.com:8080": true,
		"http://10.0.0.5":             true,
	}

	for url, want := range tests {
		t.Run(url, func(t *testing.T) {
			cfg := &Config{}
			cfg.Server.URL = url
			assert.Equal(t, want, cfg.IsInsecure())
		})
	}
}
