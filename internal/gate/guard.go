// Package gate decides whether a caller may enter the protected region.
package gate

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/catalog-gate/internal/observability"
	"github.com/spec-kit/catalog-gate/internal/session"
)

// DefaultLoginPath is where unauthenticated callers are sent.
const DefaultLoginPath = "/login"

// Decision is the outcome of one gate check.
type Decision struct {
	Allowed    bool
	Subject    string
	RedirectTo string
}

// SessionSource is the part of the session manager the gate depends on.
type SessionSource interface {
	Current(ctx context.Context) (session.State, error)
}

// Guard consults the session manager on every entry to the protected region.
type Guard struct {
	sessions  SessionSource
	loginPath string
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewGuard builds a guard. An empty loginPath falls back to DefaultLoginPath.
func NewGuard(sessions SessionSource, loginPath string, logger *zap.Logger, metrics *observability.Metrics) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{sessions: sessions, loginPath: loginPath, logger: logger, metrics: metrics}
}

// LoginPath returns the redirect target.
func (g *Guard) LoginPath() string {
	return g.loginPath
}

// Enforce returns Allow for an authenticated session and Redirect otherwise.
// A store failure still yields Redirect; the error is returned alongside it.
func (g *Guard) Enforce(ctx context.Context) (Decision, error) {
	state, err := g.sessions.Current(ctx)
	if err != nil {
		g.metrics.Inc(observability.CounterGateRedirect)
		g.logger.Warn("gate check failed", zap.Error(err))
		return g.redirect(), err
	}
	if !state.Authenticated {
		g.metrics.Inc(observability.CounterGateRedirect)
		return g.redirect(), nil
	}

	g.metrics.Inc(observability.CounterGateAllow)
	return Decision{Allowed: true, Subject: state.Subject}, nil
}

func (g *Guard) redirect() Decision {
	return Decision{RedirectTo: g.loginPath}
}
