// Package session is the single authority over the current session.
//
// The authentication state is never cached: every call to Manager.Current
// reads the credential store, decodes the token and judges expiry against the
// wall clock. Undecodable and expired entries are purged as a side effect.
package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/catalog-gate/internal/auth"
	"github.com/spec-kit/catalog-gate/internal/events"
	"github.com/spec-kit/catalog-gate/internal/observability"
	"github.com/spec-kit/catalog-gate/internal/store"
)

// DefaultKey names the session entry in the credential store.
const DefaultKey = "auth_token"

// State is the derived authentication state.
type State struct {
	Authenticated bool
	Subject       string
	ExpiresAt     time.Time
}

// Unauthenticated is the zero State.
var Unauthenticated = State{}

// Manager issues, validates and revokes the session token.
type Manager struct {
	codec      auth.Codec
	store      store.CredentialStore
	key        string
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets the session length used by Login.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithKey overrides the store key of the session entry.
func WithKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

// WithClock overrides the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDispatcher publishes session lifecycle events to d.
func WithDispatcher(d events.Dispatcher) Option {
	return func(m *Manager) {
		m.dispatcher = d
	}
}

// WithMetrics counts logins, logouts and purges.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager builds a Manager over codec and store.
func NewManager(codec auth.Codec, credentials store.CredentialStore, opts ...Option) *Manager {
	m := &Manager{
		codec:  codec,
		store:  credentials,
		key:    DefaultKey,
		ttl:    auth.DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the session length used by Login.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Login issues a fresh token for subject and persists it. The store write
// completes before Login returns.
func (m *Manager) Login(ctx context.Context, subject string) error {
	raw, err := m.codec.Encode(subject, m.ttl)
	if err != nil {
		return err
	}

	if err := m.store.Set(ctx, m.key, raw); err != nil {
		m.metrics.Inc(observability.CounterLoginFailed)
		return &PersistenceError{Op: OpWrite, Err: err}
	}

	m.metrics.Inc(observability.CounterLogin)
	event := events.NewEvent(events.EventSessionIssued, subject, "", m.now())
	event.Payload = events.SessionIssuedPayload{ExpiresAt: m.now().Add(m.ttl)}
	m.publish(ctx, event)
	return nil
}

// Logout removes the persisted token. It is idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Delete(ctx, m.key); err != nil {
		return &PersistenceError{Op: OpDelete, Err: err}
	}

	m.metrics.Inc(observability.CounterLogout)
	m.publish(ctx, events.NewEvent(events.EventSessionRevoked, "", events.ReasonLogout, m.now()))
	return nil
}

// Current derives the authentication state from the store. Corrupt and
// expired entries yield Unauthenticated and are deleted. Only a store read
// failure is returned as an error.
func (m *Manager) Current(ctx context.Context) (State, error) {
	raw, found, err := m.store.Get(ctx, m.key)
	if err != nil {
		return Unauthenticated, &PersistenceError{Op: OpRead, Err: err}
	}
	if !found {
		return Unauthenticated, nil
	}

	token, err := m.codec.Decode(raw)
	if err != nil {
		var decodeErr *auth.DecodeError
		if !errors.As(err, &decodeErr) {
			m.logger.Warn("unexpected codec error", zap.Error(err))
		}
		m.purge(ctx, raw, "", events.ReasonCorrupt)
		return Unauthenticated, nil
	}

	if auth.IsExpired(token, m.now()) {
		m.purge(ctx, raw, token.Subject, events.ReasonExpired)
		return Unauthenticated, nil
	}

	return State{Authenticated: true, Subject: token.Subject, ExpiresAt: token.ExpiresAt}, nil
}

// purge removes raw only if the entry still holds it, so a token written by a
// concurrent Login survives.
func (m *Manager) purge(ctx context.Context, raw, subject string, reason events.Reason) {
	deleted, err := m.store.CompareAndDelete(ctx, m.key, raw)
	if err != nil {
		m.logger.Warn("failed to purge session entry",
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		return
	}
	if !deleted {
		m.logger.Debug("session entry replaced before purge", zap.String("reason", string(reason)))
		return
	}

	switch reason {
	case events.ReasonExpired:
		m.metrics.Inc(observability.CounterPurgedExpired)
	case events.ReasonCorrupt:
		m.metrics.Inc(observability.CounterPurgedCorrupt)
	}
	m.logger.Info("session entry purged",
		zap.String("reason", string(reason)),
		zap.String("subject", subject),
	)
	m.publish(ctx, events.NewEvent(events.EventSessionPurged, subject, reason, m.now()))
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	if err := m.dispatcher.Publish(ctx, event); err != nil {
		m.logger.Warn("session event handler failed",
			zap.String("event", string(event.Type)),
			zap.Error(err),
		)
	}
}
