package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/spec-kit/catalog-gate/internal/auth"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ErrUnknownUser is returned by a UserDirectory for an unregistered email.
var ErrUnknownUser = errors.New("unknown user")

// UserDirectory looks up bcrypt password hashes by email.
type UserDirectory interface {
	PasswordHash(ctx context.Context, email string) (string, error)
}

// PasswordSource authenticates an email and password. Without a directory
// only the email format is checked.
type PasswordSource struct {
	users UserDirectory
}

// NewPasswordSource builds a source. users may be nil.
func NewPasswordSource(users UserDirectory) *PasswordSource {
	return &PasswordSource{users: users}
}

func (s *PasswordSource) Name() string { return "password" }

// Authenticate implements Source.
func (s *PasswordSource) Authenticate(ctx context.Context, req Request) (string, error) {
	email := strings.TrimSpace(req.Email)
	if !ValidEmail(email) {
		return "", ErrInvalidEmail
	}
	if s.users == nil {
		return email, nil
	}

	hash, err := s.users.PasswordHash(ctx, email)
	if errors.Is(err, ErrUnknownUser) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", &ExchangeError{Provider: s.Name(), Err: err}
	}
	if err := auth.ComparePassword(hash, req.Password); err != nil {
		return "", ErrInvalidCredentials
	}
	return email, nil
}

// ValidEmail reports whether email looks like user@host.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
