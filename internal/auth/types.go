package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned by a UserStore when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when signing up with an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when the email belongs to another account.
	// Emails compare case-insensitively.
	ErrEmailTaken = errors.New("email already registered")
)

// User is a registered identity.
type User struct {
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists users. Both storage backends implement it.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	FindUser(ctx context.Context, username string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}
