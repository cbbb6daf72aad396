package auth

import (
	"errors"
	"testing"
	"time"
	"unicode/utf8"
)

// FuzzJSONCodecDecode feeds arbitrary strings to the decoder.
// It must never panic and every success must satisfy the expiry invariant.
func FuzzJSONCodecDecode(f *testing.F) {
	codec := NewJSONCodec(WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }))
	if seed, err := codec.Encode("a@b.com", DefaultTTL); err == nil {
		f.Add(seed)
		f.Add(seed[:len(seed)/2])
	}
	f.Add("")
	f.Add("not-json")
	f.Add(`{"sub":"x","iat":1,"exp":1e3}`)
	f.Add(`{"sub":"x","iat":-9223372036854775808,"exp":9223372036854775807}`)

	f.Fuzz(func(t *testing.T, raw string) {
		token, err := codec.Decode(raw)
		if err != nil {
			return
		}
		if token.Subject == "" {
			t.Fatalf("decoded token without subject from %q", raw)
		}
		if !token.ExpiresAt.After(token.IssuedAt) {
			t.Fatalf("decoded token violates expiry invariant from %q", raw)
		}
	})
}

// FuzzJSONCodecRoundTrip checks that every accepted subject decodes unchanged.
func FuzzJSONCodecRoundTrip(f *testing.F) {
	codec := NewJSONCodec(WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }))
	for _, seed := range []string{"a@b.com", "", "a\xffb@c.com", "ünïcode@x.io", "quote\"and\\slash", "\u2028line"} {
		f.Add(seed, int64(time.Hour))
	}
	f.Add("a@b.com", int64(1))

	f.Fuzz(func(t *testing.T, subject string, ttlNanos int64) {
		raw, err := codec.Encode(subject, time.Duration(ttlNanos))
		switch {
		case subject == "":
			if !errors.Is(err, ErrEmptySubject) {
				t.Fatalf("expected ErrEmptySubject, got %v", err)
			}
			return
		case !utf8.ValidString(subject):
			if !errors.Is(err, ErrInvalidSubject) {
				t.Fatalf("expected ErrInvalidSubject for %q, got %v", subject, err)
			}
			return
		case ttlNanos <= 0:
			if !errors.Is(err, ErrInvalidTTL) {
				t.Fatalf("expected ErrInvalidTTL, got %v", err)
			}
			return
		case err != nil:
			t.Fatalf("encode %q: %v", subject, err)
		}

		token, err := codec.Decode(raw)
		if err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if token.Subject != subject {
			t.Fatalf("subject changed: got %q want %q", token.Subject, subject)
		}
		if IsExpired(token, token.IssuedAt) {
			t.Fatalf("token expired at issuance for ttl %d", ttlNanos)
		}
	})
}
