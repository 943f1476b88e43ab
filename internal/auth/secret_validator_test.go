package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSecret(t *testing.T) {
	strong := "k7Qm2vX9pL4rT8wZ1nB6cF3hJ5sD0gYa"

	tests := []struct {
		name    string
		secret  string
		isDev   bool
		wantErr string
	}{
		{"empty", "", false, "required"},
		{"empty in dev", "", true, "required"},
		{"short", "abc123", false, "at least 32 characters (got 6)"},
		{"one short of minimum", strong[:31], false, "at least 32"},
		{"minimum length", strong, false, ""},
		{"long random", strings.Repeat(strong, 2), false, ""},
		{"weak in production", "changeme", false, "not allowed in production"},
		{"shipped session default in production", "local-dev-session-secret-not-for-production", false, "not allowed in production"},
		{"shipped invite default in production", "local-dev-invite-secret-not-for-production", false, "not allowed in production"},
		{"weak in dev", "secret", true, ""},
		{"shipped default in dev", "local-dev-session-secret-not-for-production", true, ""},
		{"short non-weak in dev", "abc123", true, "at least 32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSecret(tt.secret, tt.isDev)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSecretPair(t *testing.T) {
	session := "a-very-strong-secret-key-with-sufficient-entropy"
	invite := "another-strong-secret-key-with-plenty-of-entropy"

	assert.NoError(t, ValidateSecretPair(session, invite, false))

	err := ValidateSecretPair(session, session, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")

	assert.NoError(t, ValidateSecretPair(session, session, true), "dev may reuse one secret")

	err = ValidateSecretPair("short", invite, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SECRET_KEY")

	err = ValidateSecretPair(session, "short", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVITE_SECRET_KEY")
}

func TestIsDevelopmentMode(t *testing.T) {
	tests := []struct {
		environment string
		goEnv       string
		want        bool
	}{
		{"", "", false},
		{"development", "", true},
		{"dev", "", true},
		{"Development", "", true},
		{"", "dev", true},
		{"", "development", true},
		{"production", "", false},
		{"prod", "production", false},
		{"staging", "dev", true},
	}

	for _, tt := range tests {
		t.Run("ENVIRONMENT="+tt.environment+",GO_ENV="+tt.goEnv, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", tt.environment)
			t.Setenv("GO_ENV", tt.goEnv)
			assert.Equal(t, tt.want, IsDevelopmentMode())
		})
	}
}
