// Package database opens the postgres connection pool and applies the
// schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPool is used when the server config leaves the pool unset.
var DefaultPool = PoolConfig{
	MaxOpenConns:    20,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
}

// Open connects to postgres and verifies the connection.
func Open(ctx context.Context, dbURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Schema creates every table the postgres store uses. Statements are
// idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username    VARCHAR(32) PRIMARY KEY,
		full_name   VARCHAR(50) NOT NULL,
		email       VARCHAR(254) NOT NULL,
		password    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS projects (
		id           BIGSERIAL PRIMARY KEY,
		name         VARCHAR(100) NOT NULL,
		description  VARCHAR(500) NOT NULL DEFAULT '',
		created_by   VARCHAR(32) NOT NULL REFERENCES users (username),
		created_on   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_by   VARCHAR(32) REFERENCES users (username),
		updated_on   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS project_access (
		project_id   BIGINT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
		username     VARCHAR(32) NOT NULL REFERENCES users (username) ON DELETE CASCADE,
		access_type  VARCHAR(16) NOT NULL CHECK (access_type IN ('owner', 'participant')),
		is_valid     BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (project_id, username)
	)`,
	`CREATE INDEX IF NOT EXISTS project_access_username_idx ON project_access (username)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id            BIGSERIAL PRIMARY KEY,
		project_id    BIGINT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
		name          VARCHAR(255) NOT NULL,
		added_by      VARCHAR(32) NOT NULL REFERENCES users (username),
		added_on      TIMESTAMPTZ NOT NULL DEFAULT now(),
		content_type  VARCHAR(255) NOT NULL,
		storage_key   VARCHAR(2048) NOT NULL UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS documents_project_idx ON documents (project_id)`,
	`CREATE TABLE IF NOT EXISTS logos (
		project_id   BIGINT PRIMARY KEY REFERENCES projects (id) ON DELETE CASCADE,
		logo_name    VARCHAR(255) NOT NULL,
		uploaded_by  VARCHAR(32) NOT NULL REFERENCES users (username),
		uploaded_on  TIMESTAMPTZ NOT NULL DEFAULT now(),
		storage_key  VARCHAR(2048) NOT NULL
	)`,
}

// Migrate applies Schema in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range Schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit()
}
