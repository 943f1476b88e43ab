package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	strongSession = "a-very-strong-secret-key-with-sufficient-entropy"
	strongInvite  = "another-strong-secret-key-with-plenty-of-entropy"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("GO_ENV", "")
	t.Setenv("AUTH_SECRET_KEY", strongSession)
	t.Setenv("INVITE_SECRET_KEY", strongInvite)
	t.Setenv("DOCUMENTS_BUCKET", "docs")
	t.Setenv("RAW_LOGO_BUCKET", "logos-raw")
	t.Setenv("RESIZED_LOGO_BUCKET", "logos")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, BlobMemory, cfg.Blob.Backend)
	assert.Equal(t, MailLog, cfg.Mail.Backend)
	assert.Equal(t, 72*time.Hour, cfg.Auth.InviteTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.False(t, cfg.IsDev)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("PUBLIC_BASE_URL", "https://hub.example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("MAX_BODY_BYTES", "2MB")
	t.Setenv("STORAGE_BACKEND", "POSTGRES")

	cfg := FromEnv()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://hub.example.com", cfg.Server.PublicBaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Blob.UsePathStyle)
	assert.Equal(t, int64(1024), cfg.Server.MaxUploadBytes)
	assert.Equal(t, int64(2<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
}

func TestFromEnv_InvalidNumbersFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("BCRYPT_COST", "twelve")
	t.Setenv("SESSION_TTL", "soon")

	cfg := FromEnv()

	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SessionTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing session secret", map[string]string{"AUTH_SECRET_KEY": ""}, "AUTH_SECRET_KEY"},
		{"same secrets", map[string]string{"INVITE_SECRET_KEY": strongSession}, "must differ"},
		{"postgres without url", map[string]string{"STORAGE_BACKEND": "postgres"}, "DB_CONNECTION_STRING"},
		{"postgres without tls", map[string]string{
			"STORAGE_BACKEND":      "postgres",
			"DB_CONNECTION_STRING": "postgres://u:p@db:5432/hub?sslmode=disable",
		}, "sslmode"},
		{"unknown storage", map[string]string{"STORAGE_BACKEND": "sqlite"}, "STORAGE_BACKEND"},
		{"unknown blob", map[string]string{"BLOB_BACKEND": "gcs"}, "BLOB_BACKEND"},
		{"missing bucket", map[string]string{"RAW_LOGO_BUCKET": ""}, "RAW_LOGO_BUCKET"},
		{"ses without sender", map[string]string{"MAIL_BACKEND": "ses"}, "SES_SENDER"},
		{"bad bcrypt cost", map[string]string{"BCRYPT_COST": "40"}, "BCRYPT_COST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := FromEnv().Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_PostgresWithTLS(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DB_CONNECTION_STRING", "postgres://u:p@db:5432/hub?sslmode=require")

	require.NoError(t, FromEnv().Validate())
}

func TestValidate_DevelopmentAllowsWeakSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("AUTH_SECRET_KEY", "local-dev-session-secret-not-for-production")
	t.Setenv("INVITE_SECRET_KEY", "local-dev-invite-secret-not-for-production")

	cfg := FromEnv()

	assert.True(t, cfg.IsDev)
	require.NoError(t, cfg.Validate())
}

func TestParseByteSize(t *testing.T) {
	const def = int64(10 * 1024 * 1024)
	tests := []struct {
		input    string
		expected int64
	}{
		{"", def},
		{"1024", 1024},
		{"0", 0},
		{"1KB", 1024},
		{"512kb", 512 * 1024},
		{"10MB", 10 * 1024 * 1024},
		{"0MB", 0},
		{"2GB", 2 * 1024 * 1024 * 1024},
		{" 50MB ", 50 * 1024 * 1024},
		{"invalid", def},
		{"10XB", def},
		{"-5", def},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseByteSize(tt.input, def))
		})
	}
}

func TestValidate_TLS(t *testing.T) {
	setRequired(t)
	t.Setenv("TLS_ENABLED", "true")

	err := FromEnv().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS_CERT_FILE")

	t.Setenv("TLS_CERT_FILE", "/etc/hub/cert.pem")
	t.Setenv("TLS_KEY_FILE", "/etc/hub/key.pem")
	t.Setenv("TLS_MIN_VERSION", "1.1")
	err = FromEnv().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS_MIN_VERSION")

	t.Setenv("TLS_MIN_VERSION", "1.3")
	require.NoError(t, FromEnv().Validate())
}
