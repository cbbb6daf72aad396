package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/catalog-gate/internal/identity"
	"github.com/spec-kit/catalog-gate/internal/session"
)

// ErrProviderDisabled is returned when a login provider is not configured.
var ErrProviderDisabled = errors.New("identity provider not configured")

// RedirectSource is an identity source that starts with a browser redirect.
type RedirectSource interface {
	identity.Source
	Begin(ctx context.Context) (string, error)
}

// SessionManager is the subset of session.Manager the service drives.
type SessionManager interface {
	Login(ctx context.Context, subject string) error
	Logout(ctx context.Context) error
	Current(ctx context.Context) (session.State, error)
}

// AuthService coordinates login flows with the session manager.
type AuthService struct {
	sessions SessionManager
	password identity.Source
	google   RedirectSource
	logger   *zap.Logger
}

// AuthDependencies encapsulates the collaborators of the auth service. Google
// may be nil when Google sign-in is not configured.
type AuthDependencies struct {
	Sessions SessionManager
	Password identity.Source
	Google   RedirectSource
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		sessions: deps.Sessions,
		password: deps.Password,
		google:   deps.Google,
		logger:   logger,
	}
}

// LoginWithPassword authenticates email and password and starts a session.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (session.State, error) {
	return s.login(ctx, s.password, identity.Request{Email: email, Password: password})
}

// GoogleEnabled reports whether Google sign-in is available.
func (s *AuthService) GoogleEnabled() bool {
	return s.google != nil
}

// BeginGoogle returns the consent URL the client should open.
func (s *AuthService) BeginGoogle(ctx context.Context) (string, error) {
	if s.google == nil {
		return "", ErrProviderDisabled
	}
	return s.google.Begin(ctx)
}

// CompleteGoogle finishes the redirect exchange and starts a session.
func (s *AuthService) CompleteGoogle(ctx context.Context, code, state, providerErr string) (session.State, error) {
	if s.google == nil {
		return session.Unauthenticated, ErrProviderDisabled
	}
	return s.login(ctx, s.google, identity.Request{Code: code, State: state, Error: providerErr})
}

// Logout ends the current session. It is idempotent.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Logout(ctx)
}

// Session reports the current authentication state.
func (s *AuthService) Session(ctx context.Context) (session.State, error) {
	return s.sessions.Current(ctx)
}

// login leaves the stored session untouched when the source fails.
func (s *AuthService) login(ctx context.Context, source identity.Source, req identity.Request) (session.State, error) {
	if source == nil {
		return session.Unauthenticated, ErrProviderDisabled
	}

	subject, err := source.Authenticate(ctx, req)
	if err != nil {
		s.logger.Info("login rejected", zap.String("provider", source.Name()), zap.Error(err))
		return session.Unauthenticated, err
	}

	if err := s.sessions.Login(ctx, subject); err != nil {
		s.logger.Error("failed to persist session", zap.String("provider", source.Name()), zap.Error(err))
		return session.Unauthenticated, err
	}

	s.logger.Info("session started", zap.String("provider", source.Name()), zap.String("subject", subject))
	return s.sessions.Current(ctx)
}
