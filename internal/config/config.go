// Package config loads server configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/database"
)

// Backend selectors.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	BlobMemory      = "memory"
	BlobS3          = "s3"
	MailLog         = "log"
	MailSES         = "ses"
)

// Config holds all server configuration
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Storage StorageConfig
	Blob    BlobConfig
	Mail    MailConfig
	Logging LoggingConfig
	IsDev   bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	PublicBaseURL   string
	AllowedOrigins  []string
	MaxUploadBytes  int64
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TLSEnabled      bool
	TLSCertFile     string
	TLSKeyFile      string
	TLSMinVersion   string
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	SessionSecret    string
	InviteSecret     string
	SessionTTL       time.Duration
	InviteTTL        time.Duration
	BcryptCost       int
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

// StorageConfig selects the metadata store
type StorageConfig struct {
	Backend     string
	DatabaseURL string
}

// BlobConfig selects the blob store and names its buckets
type BlobConfig struct {
	Backend           string
	Region            string
	Endpoint          string
	UsePathStyle      bool
	AccessKey         string
	SecretKey         string
	DocumentsBucket   string
	RawLogoBucket     string
	ResizedLogoBucket string
}

// MailConfig selects how invitation mail is delivered
type MailConfig struct {
	Backend string
	Region  string
	Sender  string
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level    string
	FilePath string
}

// Load reads .env if present, then the environment. The result is not
// validated; call Validate before use.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from environment variables only.
func FromEnv() *Config {
	region := getEnv("AWS_REGION", "eu-central-1")
	return &Config{
		IsDev: auth.IsDevelopmentMode(),
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
			MaxUploadBytes:  ParseByteSize(os.Getenv("MAX_UPLOAD_BYTES"), 32<<20),
			MaxBodyBytes:    ParseByteSize(os.Getenv("MAX_BODY_BYTES"), 1<<20),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TLSEnabled:      getEnvBool("TLS_ENABLED", false),
			TLSCertFile:     os.Getenv("TLS_CERT_FILE"),
			TLSKeyFile:      os.Getenv("TLS_KEY_FILE"),
			TLSMinVersion:   os.Getenv("TLS_MIN_VERSION"),
		},
		Auth: AuthConfig{
			SessionSecret:    os.Getenv("AUTH_SECRET_KEY"),
			InviteSecret:     os.Getenv("INVITE_SECRET_KEY"),
			SessionTTL:       getEnvDuration("SESSION_TTL", 30*time.Minute),
			InviteTTL:        getEnvDuration("INVITE_TTL", 72*time.Hour),
			BcryptCost:       getEnvInt("BCRYPT_COST", auth.DefaultBcryptCost),
			LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 10),
			LoginWindow:      getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
			DatabaseURL: os.Getenv("DB_CONNECTION_STRING"),
		},
		Blob: BlobConfig{
			Backend:           strings.ToLower(getEnv("BLOB_BACKEND", BlobMemory)),
			Region:            region,
			Endpoint:          os.Getenv("S3_ENDPOINT"),
			UsePathStyle:      getEnvBool("S3_USE_PATH_STYLE", false),
			AccessKey:         os.Getenv("S3_ACCESS_KEY"),
			SecretKey:         os.Getenv("S3_SECRET_KEY"),
			DocumentsBucket:   os.Getenv("DOCUMENTS_BUCKET"),
			RawLogoBucket:     os.Getenv("RAW_LOGO_BUCKET"),
			ResizedLogoBucket: os.Getenv("RESIZED_LOGO_BUCKET"),
		},
		Mail: MailConfig{
			Backend: strings.ToLower(getEnv("MAIL_BACKEND", MailLog)),
			Region:  region,
			Sender:  os.Getenv("SES_SENDER"),
		},
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: os.Getenv("LOG_FILE_PATH"),
		},
	}
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if err := auth.ValidateSecretPair(c.Auth.SessionSecret, c.Auth.InviteSecret, c.IsDev); err != nil {
		return err
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.InviteTTL <= 0 {
		return fmt.Errorf("SESSION_TTL and INVITE_TTL must be positive")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if err := database.ValidateDatabaseURL(c.Storage.DatabaseURL, c.IsDev); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND: %s (must be memory or postgres)", c.Storage.Backend)
	}

	switch c.Blob.Backend {
	case BlobMemory:
	case BlobS3:
		if c.Blob.Region == "" {
			return fmt.Errorf("AWS_REGION is required for s3 blob storage")
		}
	default:
		return fmt.Errorf("invalid BLOB_BACKEND: %s (must be memory or s3)", c.Blob.Backend)
	}
	if c.Blob.DocumentsBucket == "" || c.Blob.RawLogoBucket == "" || c.Blob.ResizedLogoBucket == "" {
		return fmt.Errorf("DOCUMENTS_BUCKET, RAW_LOGO_BUCKET and RESIZED_LOGO_BUCKET are required")
	}

	switch c.Mail.Backend {
	case MailLog:
	case MailSES:
		if c.Mail.Sender == "" {
			return fmt.Errorf("SES_SENDER is required for ses mail delivery")
		}
	default:
		return fmt.Errorf("invalid MAIL_BACKEND: %s (must be log or ses)", c.Mail.Backend)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "" {
			return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE are required when TLS_ENABLED is true")
		}
		switch c.Server.TLSMinVersion {
		case "", "1.2", "1.3":
		default:
			return fmt.Errorf("invalid TLS_MIN_VERSION: %s (must be 1.2 or 1.3)", c.Server.TLSMinVersion)
		}
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// ParseByteSize parses a size such as "1048576", "512KB", "10MB" or
// "1GB". Empty or unparsable values yield defaultValue.
func ParseByteSize(value string, defaultValue int64) int64 {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return defaultValue
	}

	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
	} {
		if strings.HasSuffix(value, unit.suffix) {
			value = strings.TrimSuffix(value, unit.suffix)
			multiplier = unit.factor
			break
		}
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n * multiplier
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
