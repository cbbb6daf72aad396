package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/catalog-gate/internal/auth"
	"github.com/spec-kit/catalog-gate/internal/store"
)

type mapDirectory map[string]string

func (d mapDirectory) PasswordHash(_ context.Context, email string) (string, error) {
	hash, ok := d[email]
	if !ok {
		return "", ErrUnknownUser
	}
	return hash, nil
}

func TestPasswordSourceValidatesEmail(t *testing.T) {
	src := NewPasswordSource(nil)
	for _, email := range []string{"", "plain", "a@b", "a @b.com", "@"} {
		if _, err := src.Authenticate(context.Background(), Request{Email: email}); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("email %q: expected ErrInvalidEmail, got %v", email, err)
		}
	}

	subject, err := src.Authenticate(context.Background(), Request{Email: " a@b.com ", Password: "anything"})
	if err != nil || subject != "a@b.com" {
		t.Fatalf("expected a@b.com, got %q err=%v", subject, err)
	}
}

func TestPasswordSourceWithDirectory(t *testing.T) {
	hash, err := auth.HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	src := NewPasswordSource(mapDirectory{"a@b.com": hash})
	ctx := context.Background()

	if subject, err := src.Authenticate(ctx, Request{Email: "a@b.com", Password: "s3cret"}); err != nil || subject != "a@b.com" {
		t.Fatalf("expected success, got %q err=%v", subject, err)
	}
	if _, err := src.Authenticate(ctx, Request{Email: "a@b.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := src.Authenticate(ctx, Request{Email: "x@y.com", Password: "s3cret"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

type fakeGoogle struct {
	server       *httptest.Server
	lastVerifier string
	accessToken  string
	email        string
	tokenStatus  int
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{accessToken: "at-123", email: "g@example.com", tokenStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "authorization_code" || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.lastVerifier = r.Form.Get("code_verifier")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": f.accessToken, "token_type": "Bearer"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"email": f.email, "verified_email": true})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newGoogleTest(t *testing.T, f *fakeGoogle, opts ...store.MemoryOption) (*GoogleSource, *store.Memory) {
	t.Helper()
	states := store.NewMemory(opts...)
	src, err := NewGoogleSource(GoogleConfig{
		ClientID:    "client-1",
		RedirectURI: "com.example.app://oauth",
		AuthURL:     f.server.URL + "/auth",
		TokenURL:    f.server.URL + "/token",
		UserInfoURL: f.server.URL + "/userinfo",
	}, states, nil)
	if err != nil {
		t.Fatalf("new google source: %v", err)
	}
	return src, states
}

func beginState(t *testing.T, src *GoogleSource) (string, url.Values) {
	t.Helper()
	authURL, err := src.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := parsed.Query()
	return q.Get("state"), q
}

func TestGoogleSourceCodeExchange(t *testing.T) {
	f := newFakeGoogle(t)
	src, states := newGoogleTest(t, f)
	ctx := context.Background()

	state, q := beginState(t, src)
	if q.Get("code_challenge_method") != "S256" || q.Get("client_id") != "client-1" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected auth url query %v", q)
	}

	subject, err := src.Authenticate(ctx, Request{Code: "good-code", State: state})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if subject != "g@example.com" {
		t.Fatalf("expected g@example.com, got %q", subject)
	}
	if challengeS256(f.lastVerifier) != q.Get("code_challenge") {
		t.Fatalf("verifier sent to token endpoint does not match the challenge")
	}
	if _, found, _ := states.Get(ctx, statePrefix+state); found {
		t.Fatalf("state must be consumed")
	}

	_, err = src.Authenticate(ctx, Request{Code: "good-code", State: state})
	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("replayed state must fail with ExchangeError, got %v", err)
	}
}

func TestGoogleSourceCancelled(t *testing.T) {
	f := newFakeGoogle(t)
	src, states := newGoogleTest(t, f)
	state, _ := beginState(t, src)

	_, err := src.Authenticate(context.Background(), Request{Error: "access_denied", State: state})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if _, found, _ := states.Get(context.Background(), statePrefix+state); found {
		t.Fatalf("cancelled state must be discarded")
	}
}

func TestGoogleSourceExchangeFailures(t *testing.T) {
	cases := map[string]func(*fakeGoogle) Request{
		"bad code": func(*fakeGoogle) Request { return Request{Code: "bad-code"} },
		"missing access token": func(f *fakeGoogle) Request {
			f.accessToken = ""
			return Request{Code: "good-code"}
		},
		"missing email": func(f *fakeGoogle) Request {
			f.email = ""
			return Request{Code: "good-code"}
		},
		"token endpoint error": func(f *fakeGoogle) Request {
			f.tokenStatus = http.StatusInternalServerError
			return Request{Code: "good-code"}
		},
	}

	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFakeGoogle(t)
			src, _ := newGoogleTest(t, f)
			state, _ := beginState(t, src)
			req := prepare(f)
			req.State = state

			_, err := src.Authenticate(context.Background(), req)
			var exchangeErr *ExchangeError
			if !errors.As(err, &exchangeErr) {
				t.Fatalf("expected ExchangeError, got %v", err)
			}
			if exchangeErr.Provider != "google" {
				t.Fatalf("unexpected provider %q", exchangeErr.Provider)
			}
		})
	}
}

func TestGoogleSourceUnknownState(t *testing.T) {
	f := newFakeGoogle(t)
	src, _ := newGoogleTest(t, f)
	_, err := src.Authenticate(context.Background(), Request{Code: "good-code", State: "forged"})
	if err == nil || !strings.Contains(err.Error(), "unknown or reused state") {
		t.Fatalf("expected unknown state error, got %v", err)
	}
}

func TestChallengeS256KnownVector(t *testing.T) {
	// RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	if got := challengeS256(verifier); got != "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM" {
		t.Fatalf("unexpected challenge %q", got)
	}
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func TestGoogleSourceRejectsStaleState(t *testing.T) {
	f := newFakeGoogle(t)
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	// The store never expires entries here, so only the issue time guards the flow.
	src, states := newGoogleTest(t, f)
	src.now = clock.Now
	state, _ := beginState(t, src)

	clock.now = clock.now.Add(DefaultStateTTL + time.Second)
	_, err := src.Authenticate(context.Background(), Request{Code: "good-code", State: state})
	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) || !strings.Contains(err.Error(), "expired oauth state") {
		t.Fatalf("expected expired state ExchangeError, got %v", err)
	}
	if _, found, _ := states.Get(context.Background(), statePrefix+state); found {
		t.Fatalf("stale state must be removed")
	}
	if f.lastVerifier != "" {
		t.Fatalf("token endpoint must not be called for a stale state")
	}
}

func TestGoogleSourceStateExpiresInStore(t *testing.T) {
	f := newFakeGoogle(t)
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	src, states := newGoogleTest(t, f, store.WithMemoryClock(clock.Now))
	src.now = clock.Now

	for i := 0; i < 5; i++ {
		beginState(t, src)
	}
	if states.Len() != 5 {
		t.Fatalf("expected 5 pending flows, got %d", states.Len())
	}

	clock.now = clock.now.Add(DefaultStateTTL)
	if states.Len() != 0 {
		t.Fatalf("abandoned flows must expire, %d left", states.Len())
	}

	state, _ := beginState(t, src)
	clock.now = clock.now.Add(DefaultStateTTL)
	_, err := src.Authenticate(context.Background(), Request{Code: "good-code", State: state})
	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected ExchangeError for an expired state, got %v", err)
	}
}
