// Package store persists the serialized session token and other small
// secrets under fixed keys.
//
// Every backend makes Set atomic from the caller's point of view: a reader
// observes either the previous value or the complete new one.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmptyKey is returned when an operation is attempted without a key.
	ErrEmptyKey = errors.New("credential key is empty")
	// ErrTampered is returned when a sealed value fails authentication.
	ErrTampered = errors.New("credential value failed integrity check")
	// ErrUnavailable is returned when a backend is not configured or unreachable.
	ErrUnavailable = errors.New("credential store unavailable")
	// ErrInvalidTTL is returned by SetWithTTL for a non-positive ttl.
	ErrInvalidTTL = errors.New("credential ttl must be positive")
)

// CredentialStore is a small key-value store for opaque strings.
type CredentialStore interface {
	// Get returns the stored value. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// CompareAndDelete removes key only while it still holds expected.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// ExpiringStore is implemented by backends that drop an entry on their own
// once ttl has passed. Expired entries read as absent.
type ExpiringStore interface {
	CredentialStore
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
