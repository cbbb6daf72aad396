// Package identity turns an out-of-band login exchange into a trusted subject.
package identity

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when the user abandons or denies the exchange.
	ErrCancelled = errors.New("identity exchange cancelled")
	// ErrInvalidEmail is returned when the email is missing or malformed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidCredentials is returned when a password does not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Request carries whatever a source needs to authenticate. Password sources
// read Email and Password; redirect-based sources read Code, State and Error.
type Request struct {
	Email    string
	Password string
	Code     string
	State    string
	Error    string
}

// Source produces a verified subject identity.
type Source interface {
	Name() string
	Authenticate(ctx context.Context, req Request) (string, error)
}

// ExchangeError reports a failed exchange with an identity provider.
type ExchangeError struct {
	Provider string
	Err      error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s identity exchange: %v", e.Provider, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}
