package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anavel898/project-management-dashboard/internal/auth"
)

const bearerPrefix = "bearer "

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("could not validate credentials")
	ErrExpiredToken = errors.New("token expired")
	ErrUnknownUser  = errors.New("user not found")
)

// PrivilegeSource partitions a user's grants by role.
type PrivilegeSource interface {
	PrivilegesFor(ctx context.Context, username string) (owned, participating []int64, err error)
}

// Builder turns an Authorization header into a Context.
type Builder struct {
	sessions *auth.TokenCodec
	users    auth.UserStore
	access   PrivilegeSource
}

// NewBuilder creates a builder over the session codec and stores.
func NewBuilder(sessions *auth.TokenCodec, users auth.UserStore, access PrivilegeSource) *Builder {
	return &Builder{sessions: sessions, users: users, access: access}
}

// Build verifies the bearer token, resolves the user and loads current
// privileges.
func (b *Builder) Build(ctx context.Context, authorization string) (*Context, error) {
	token, err := ExtractBearerToken(authorization)
	if err != nil {
		return nil, err
	}

	claims, err := b.sessions.Verify(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}

	username, ok := auth.StringClaim(claims, "sub")
	if !ok {
		return nil, ErrInvalidToken
	}

	user, err := b.users.FindUser(ctx, username)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	owned, participating, err := b.access.PrivilegesFor(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("load privileges: %w", err)
	}
	return NewContext(user.Username, owned, participating), nil
}

// ExtractBearerToken returns the token from a "Bearer <token>" header.
// The scheme is matched case-insensitively.
func ExtractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
