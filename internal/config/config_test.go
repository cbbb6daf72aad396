package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_TOKEN_FORMAT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.TokenFormat != TokenFormatJSON || cfg.Store.Backend != StoreMemory {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Auth, cfg.Store)
	}
	if cfg.Auth.SessionTTL() != time.Hour {
		t.Fatalf("expected one hour sessions, got %v", cfg.Auth.SessionTTL())
	}
	if cfg.Auth.StoreKey != "auth_token" {
		t.Fatalf("unexpected store key %q", cfg.Auth.StoreKey)
	}
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"jwt without secret", map[string]string{"AUTH_TOKEN_FORMAT": "jwt", "AUTH_JWT_SECRET": ""}, "AUTH_JWT_SECRET"},
		{"unknown format", map[string]string{"AUTH_TOKEN_FORMAT": "paseto"}, "AUTH_TOKEN_FORMAT"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "sqlite"}, "STORE_BACKEND"},
		{"file without passphrase", map[string]string{"STORE_BACKEND": "file", "STORE_FILE_PASSPHRASE": ""}, "STORE_FILE_PASSPHRASE"},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres", "POSTGRES_DSN": ""}, "POSTGRES_DSN"},
		{"google without redirect", map[string]string{"GOOGLE_CLIENT_ID": "id", "GOOGLE_REDIRECT_URI": ""}, "GOOGLE_REDIRECT_URI"},
		{"bad redis db", map[string]string{"REDIS_DB": "one"}, "REDIS_DB"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadJWTWithSecret(t *testing.T) {
	t.Setenv("AUTH_TOKEN_FORMAT", "JWT")
	t.Setenv("AUTH_JWT_SECRET", "s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.TokenFormat != TokenFormatJWT {
		t.Fatalf("expected lower-cased jwt format, got %q", cfg.Auth.TokenFormat)
	}
}
