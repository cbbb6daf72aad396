package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/catalog-gate/internal/domain"
)

// DefaultTTL matches the fixed session length of the login flow.
const DefaultTTL = time.Hour

var (
	// ErrEmptySubject is returned when a token is requested without an identity.
	ErrEmptySubject = errors.New("token subject is empty")
	// ErrInvalidSubject is returned for a subject that is not valid UTF-8 and
	// so cannot survive JSON serialization unchanged.
	ErrInvalidSubject = errors.New("token subject is not valid utf-8")
	// ErrInvalidTTL is returned for a non-positive time-to-live.
	ErrInvalidTTL = errors.New("token ttl must be positive")
)

// DecodeError reports a serialized token that cannot be parsed.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode token: %s: %v", e.Reason, e.Err)
	}
	return "decode token: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Codec converts session tokens to and from their stored string form.
type Codec interface {
	Encode(subject string, ttl time.Duration) (string, error)
	Decode(raw string) (*domain.Token, error)
}

// IsExpired reports whether now is past the token's expiry.
func IsExpired(token *domain.Token, now time.Time) bool {
	return token.ExpiredAt(now)
}

// Option configures a codec.
type Option func(*codecOptions)

type codecOptions struct {
	now func() time.Time
}

// WithClock overrides the wall clock used for issuance.
func WithClock(now func() time.Time) Option {
	return func(o *codecOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) codecOptions {
	o := codecOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// JSONCodec stores the token as a plain JSON object with millisecond instants.
// It carries no integrity protection.
type JSONCodec struct {
	now func() time.Time
}

type jsonToken struct {
	Subject   *string          `json:"sub"`
	IssuedAt  *json.RawMessage `json:"iat"`
	ExpiresAt *json.RawMessage `json:"exp"`
}

// NewJSONCodec builds the default unsigned codec.
func NewJSONCodec(opts ...Option) *JSONCodec {
	o := buildOptions(opts)
	return &JSONCodec{now: o.now}
}

// Encode implements Codec.
// Instants have millisecond precision, so ttl is rounded up to whole
// milliseconds.
func (c *JSONCodec) Encode(subject string, ttl time.Duration) (string, error) {
	if err := checkSubject(subject); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}
	ttl = ceilTo(ttl, time.Millisecond)

	issuedAt := c.now().UnixMilli()
	payload := struct {
		Subject   string `json:"sub"`
		IssuedAt  int64  `json:"iat"`
		ExpiresAt int64  `json:"exp"`
	}{
		Subject:   subject,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt + ttl.Milliseconds(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(raw string) (*domain.Token, error) {
	var parsed jsonToken
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&parsed); err != nil {
		return nil, &DecodeError{Reason: "malformed structure", Err: err}
	}
	if dec.More() {
		return nil, &DecodeError{Reason: "trailing data"}
	}

	if parsed.Subject == nil || *parsed.Subject == "" {
		return nil, &DecodeError{Reason: "missing subject"}
	}
	if parsed.IssuedAt == nil {
		return nil, &DecodeError{Reason: "missing iat"}
	}
	if parsed.ExpiresAt == nil {
		return nil, &DecodeError{Reason: "missing exp"}
	}

	iat, err := parseMillis(*parsed.IssuedAt)
	if err != nil {
		return nil, &DecodeError{Reason: "non-numeric iat", Err: err}
	}
	exp, err := parseMillis(*parsed.ExpiresAt)
	if err != nil {
		return nil, &DecodeError{Reason: "non-numeric exp", Err: err}
	}
	if exp <= iat {
		return nil, &DecodeError{Reason: "exp not after iat"}
	}

	return &domain.Token{
		Subject:   *parsed.Subject,
		IssuedAt:  time.UnixMilli(iat),
		ExpiresAt: time.UnixMilli(exp),
	}, nil
}

func parseMillis(raw json.RawMessage) (int64, error) {
	if len(raw) > 0 && raw[0] == '"' {
		return 0, errors.New("quoted number")
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n.Int64()
}

// JWTCodec stores the token as an HS256-signed JWT.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
}

// Claims describes the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
}

// NewJWTCodec builds a signed codec. The secret must not be empty.
func NewJWTCodec(secret string, opts ...Option) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("jwt codec requires a secret")
	}
	o := buildOptions(opts)
	return &JWTCodec{secret: []byte(secret), now: o.now}, nil
}

// Encode implements Codec. JWT instants have second precision, so ttl is
// rounded up to whole seconds.
func (c *JWTCodec) Encode(subject string, ttl time.Duration) (string, error) {
	if err := checkSubject(subject); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}

	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ceilTo(ttl, time.Second))
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode implements Codec. Expiry is not checked here; callers use IsExpired.
func (c *JWTCodec) Decode(raw string) (*domain.Token, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, &DecodeError{Reason: "invalid jwt", Err: err}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, &DecodeError{Reason: "invalid token claims"}
	}
	if claims.Subject == "" {
		return nil, &DecodeError{Reason: "missing subject"}
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, &DecodeError{Reason: "missing iat or exp"}
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return nil, &DecodeError{Reason: "exp not after iat"}
	}

	return &domain.Token{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func checkSubject(subject string) error {
	if subject == "" {
		return ErrEmptySubject
	}
	if !utf8.ValidString(subject) {
		return ErrInvalidSubject
	}
	return nil
}

// ceilTo rounds d up to a multiple of unit, or down when rounding up would
// overflow.
func ceilTo(d, unit time.Duration) time.Duration {
	r := d % unit
	if r == 0 {
		return d
	}
	if up := d - r + unit; up > d {
		return up
	}
	return d - r
}
