// Package postgres implements the storage interfaces on PostgreSQL via
// lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store is a postgres-backed project.Store.
type Store struct {
	db *sql.DB
}

var _ project.Store = (*Store)(nil)

// New wraps an open connection pool. The schema must already exist.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func pqCode(err error) (string, string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

// foreignKeyError maps an FK violation to the missing parent's error.
func foreignKeyError(constraint string) error {
	if strings.Contains(constraint, "project_id") {
		return project.ErrProjectNotFound
	}
	return auth.ErrUserNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `username, full_name, email, password, created_at`

func scanUser(row rowScanner) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.Username, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, full_name, email, password, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.Username, user.FullName, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if code, constraint := pqCode(err); code == codeUniqueViolation {
		if constraint == "users_email_key" {
			return fmt.Errorf("create user %s: %w", user.Username, auth.ErrEmailTaken)
		}
		return fmt.Errorf("create user %s: %w", user.Username, auth.ErrUsernameTaken)
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, username string) (*auth.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find user %s: %w", username, auth.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", username, err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find user by email: %w", auth.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}
