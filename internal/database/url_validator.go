package database

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// allowedSSLModes are the sslmode values accepted outside development.
var allowedSSLModes = map[string]bool{
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// ValidateDatabaseURL checks that the connection string uses TLS outside
// development. Both postgres:// URLs and key=value DSNs are accepted.
func ValidateDatabaseURL(dbURL string, isDev bool) error {
	if dbURL == "" {
		return fmt.Errorf("DB_CONNECTION_STRING environment variable is required")
	}

	if isDev {
		return nil
	}

	params, err := connectionParams(dbURL)
	if err != nil {
		return fmt.Errorf("invalid DB_CONNECTION_STRING format: %w", err)
	}

	sslMode := params["sslmode"]
	if !allowedSSLModes[sslMode] {
		logrus.WithField("sslmode", sslMode).Error("database SSL/TLS is required in production; allowed modes: require, verify-ca, verify-full")
		return fmt.Errorf("database SSL required in production (sslmode=%q not allowed, must be one of: require, verify-ca, verify-full)", sslMode)
	}

	logrus.WithField("sslmode", sslMode).Info("database SSL mode validated")
	return nil
}

// connectionParams normalises a URL or DSN into key/value pairs.
func connectionParams(dbURL string) (map[string]string, error) {
	dsn := dbURL
	if strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://") {
		converted, err := pq.ParseURL(dbURL)
		if err != nil {
			return nil, err
		}
		dsn = converted
	}

	params := make(map[string]string)
	for _, field := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		params[key] = strings.Trim(value, "'")
	}
	return params, nil
}
