package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Credentials authenticates and registers users over a UserStore.
type Credentials struct {
	users UserStore
	cost  int
	now   func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentials creates a credential adapter. A zero cost means DefaultBcryptCost.
func NewCredentials(users UserStore, cost int) *Credentials {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &Credentials{users: users, cost: cost, now: time.Now}
}

// Authenticate returns the user when the password matches.
// A missing user or wrong password yields nil, nil.
func (c *Credentials) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := c.users.FindUser(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		// Unknown users still pay for one comparison.
		_ = VerifyPassword(c.dummy(), password)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil
	}
	return user, nil
}

func (c *Credentials) dummy() string {
	c.dummyOnce.Do(func() {
		c.dummyHash, _ = HashPassword("unknown-user-placeholder", c.cost)
	})
	return c.dummyHash
}

// Create registers a new user with a bcrypt-hashed password.
func (c *Credentials) Create(ctx context.Context, username, fullName, email, password string) (*User, error) {
	if err := ValidateSignup(username, fullName, email, password); err != nil {
		return nil, err
	}

	_, err := c.users.FindUser(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	_, err = c.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	hash, err := HashPassword(password, c.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Username:     username,
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    c.now().UTC(),
	}
	if err := c.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ValidationError describes a rejected signup field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var signupValidator = validator.New()

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// signupRules mirrors the validate tags on the HTTP signup body.
var signupRules = []struct {
	field string
	tag   string
}{
	{"username", "required,max=32,excludesall= /"},
	{"full_name", "required,max=50"},
	{"email", "required,email"},
	{"password", "required,max=72"},
}

// ValidateSignup checks that every signup field is present and sane.
// Full name and email are checked with surrounding whitespace removed.
func ValidateSignup(username, fullName, email, password string) error {
	values := []string{username, strings.TrimSpace(fullName), strings.TrimSpace(email), password}
	for i, rule := range signupRules {
		err := signupValidator.Var(values[i], rule.tag)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return fmt.Errorf("validate %s: %w", rule.field, err)
		}
		return &ValidationError{Field: rule.field, Message: SignupMessage(verrs[0])}
	}
	if len(password) > maxPasswordBytes {
		return &ValidationError{Field: "password", Message: "must be at most 72 bytes"}
	}
	return nil
}

// SignupMessage renders a failed signup rule for clients.
func SignupMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "value is not a valid email address"
	case "excludesall":
		return "must not contain spaces or slashes"
	}
	return "failed " + fe.Tag() + " validation"
}
