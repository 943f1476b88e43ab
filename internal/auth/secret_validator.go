package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Known weak/default secrets that should never be used in production
var knownWeakSecrets = []string{
	"local-dev-session-secret-not-for-production",
	"local-dev-invite-secret-not-for-production",
	"changeme",
	"secret",
	"password",
	"test",
	"dev",
	"development",
}

// ValidateSecret validates a signing secret. Weak secrets are tolerated
// with a warning when isDev is true.
func ValidateSecret(secret string, isDev bool) error {
	if secret == "" {
		return errors.New("signing secret is required")
	}

	// Weak list is checked before length so dev mode can accept short defaults.
	for _, weak := range knownWeakSecrets {
		if secret == weak {
			if isDev {
				logrus.Warnf("using default signing secret '%s...' - NOT FOR PRODUCTION USE", secret[:min(20, len(secret))])
				return nil
			}
			return fmt.Errorf("default/weak signing secret not allowed in production environment")
		}
	}

	if len(secret) < 32 {
		return fmt.Errorf("signing secret must be at least 32 characters (got %d)", len(secret))
	}

	return nil
}

// ValidateSecretPair validates the session and invite secrets together.
// Outside development the two must differ.
func ValidateSecretPair(sessionSecret, inviteSecret string, isDev bool) error {
	if err := ValidateSecret(sessionSecret, isDev); err != nil {
		return fmt.Errorf("AUTH_SECRET_KEY: %w", err)
	}
	if err := ValidateSecret(inviteSecret, isDev); err != nil {
		return fmt.Errorf("INVITE_SECRET_KEY: %w", err)
	}
	if sessionSecret == inviteSecret && !isDev {
		return errors.New("AUTH_SECRET_KEY and INVITE_SECRET_KEY must differ")
	}
	return nil
}

// developmentEnvVars are consulted in order by IsDevelopmentMode.
var developmentEnvVars = []string{"ENVIRONMENT", "GO_ENV"}

// IsDevelopmentMode reports whether ENVIRONMENT or GO_ENV names a
// development environment ("development" or "dev", any case). Anything
// else, including unset, is production.
func IsDevelopmentMode() bool {
	for _, name := range developmentEnvVars {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
		case "development", "dev":
			return true
		}
	}
	return false
}
