package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// verifierLength yields a 43 character base64url verifier.
const verifierLength = 32

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newVerifier creates a PKCE code verifier.
func newVerifier() (string, error) {
	return randomToken(verifierLength)
}

// challengeS256 derives the S256 code challenge of verifier.
func challengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// newState creates an opaque CSRF state value.
func newState() (string, error) {
	return randomToken(16)
}
