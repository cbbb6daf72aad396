package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/catalog-gate/internal/store"
	"github.com/spec-kit/catalog-gate/internal/upstream"
)

const statePrefix = "oauth_state:"

// DefaultStateTTL bounds how long a started sign-in may wait for its callback.
const DefaultStateTTL = 10 * time.Minute

// GoogleConfig holds OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
	Timeout      time.Duration
	StateTTL     time.Duration
}

// DefaultGoogleScopes asks for the email only.
var DefaultGoogleScopes = []string{"openid", "https://www.googleapis.com/auth/userinfo.email"}

// GoogleSource runs the authorization code flow with PKCE. The verifier for
// each pending flow is kept in an expiring store for at most StateTTL.
type GoogleSource struct {
	cfg    GoogleConfig
	states store.ExpiringStore
	client upstream.Client
	logger *zap.Logger
	now    func() time.Time
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

type googleUser struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// NewGoogleSource builds the source.
func NewGoogleSource(cfg GoogleConfig, states store.ExpiringStore, logger *zap.Logger) (*GoogleSource, error) {
	if cfg.ClientID == "" || cfg.RedirectURI == "" {
		return nil, errors.New("google source requires client id and redirect uri")
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, errors.New("google source requires auth, token and userinfo urls")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultGoogleScopes
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleSource{
		cfg:    cfg,
		states: states,
		client: upstream.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *GoogleSource) Name() string { return "google" }

// Begin starts a flow and returns the consent URL to open.
func (s *GoogleSource) Begin(ctx context.Context) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	verifier, err := newVerifier()
	if err != nil {
		return "", err
	}
	pending := strconv.FormatInt(s.now().UnixMilli(), 10) + "." + verifier
	if err := s.states.SetWithTTL(ctx, statePrefix+state, pending, s.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}

	authURL, err := url.Parse(s.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("parse auth url: %w", err)
	}
	q := authURL.Query()
	q.Set("client_id", s.cfg.ClientID)
	q.Set("redirect_uri", s.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(s.cfg.Scopes, " "))
	q.Set("state", state)
	q.Set("code_challenge", challengeS256(verifier))
	q.Set("code_challenge_method", "S256")
	authURL.RawQuery = q.Encode()
	return authURL.String(), nil
}

// Authenticate completes the flow started by Begin.
func (s *GoogleSource) Authenticate(ctx context.Context, req Request) (string, error) {
	if req.Error != "" {
		s.discardState(ctx, req.State)
		return "", ErrCancelled
	}
	if req.Code == "" || req.State == "" {
		return "", s.fail(errors.New("missing code or state"))
	}

	pending, found, err := s.states.Get(ctx, statePrefix+req.State)
	if err != nil {
		return "", s.fail(fmt.Errorf("load oauth state: %w", err))
	}
	if !found {
		return "", s.fail(errors.New("unknown or reused state"))
	}
	consumed, err := s.states.CompareAndDelete(ctx, statePrefix+req.State, pending)
	if err != nil {
		return "", s.fail(fmt.Errorf("consume oauth state: %w", err))
	}
	if !consumed {
		return "", s.fail(errors.New("unknown or reused state"))
	}
	verifier, err := s.openPending(pending)
	if err != nil {
		return "", s.fail(err)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", req.Code)
	form.Set("redirect_uri", s.cfg.RedirectURI)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("code_verifier", verifier)
	if s.cfg.ClientSecret != "" {
		form.Set("client_secret", s.cfg.ClientSecret)
	}

	var token googleTokenResponse
	if err := s.client.PostForm(ctx, s.cfg.TokenURL, form, nil, &token); err != nil {
		return "", s.fail(fmt.Errorf("exchange code: %w", err))
	}
	if token.AccessToken == "" {
		return "", s.fail(errors.New("no access token returned"))
	}

	var user googleUser
	headers := map[string]string{"Authorization": "Bearer " + token.AccessToken}
	if err := s.client.GetJSON(ctx, s.cfg.UserInfoURL, headers, &user); err != nil {
		return "", s.fail(fmt.Errorf("fetch userinfo: %w", err))
	}
	if user.Email == "" {
		return "", s.fail(errors.New("userinfo has no email"))
	}
	return user.Email, nil
}

// openPending returns the verifier of a stored flow still inside StateTTL.
func (s *GoogleSource) openPending(pending string) (string, error) {
	issued, verifier, ok := strings.Cut(pending, ".")
	if !ok || verifier == "" {
		return "", errors.New("malformed oauth state")
	}
	issuedMillis, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return "", errors.New("malformed oauth state")
	}
	if s.now().Sub(time.UnixMilli(issuedMillis)) > s.cfg.StateTTL {
		return "", errors.New("expired oauth state")
	}
	return verifier, nil
}

func (s *GoogleSource) discardState(ctx context.Context, state string) {
	if state == "" {
		return
	}
	if err := s.states.Delete(ctx, statePrefix+state); err != nil {
		s.logger.Warn("failed to discard oauth state", zap.Error(err))
	}
}

func (s *GoogleSource) fail(err error) error {
	return &ExchangeError{Provider: s.Name(), Err: err}
}
