package domain

import "time"

// Token is the session credential pairing a subject with its issuance window.
type Token struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the token is past its expiry at now.
func (t Token) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
