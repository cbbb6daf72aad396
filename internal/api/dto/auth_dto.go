package dto

import (
	"time"

	"github.com/spec-kit/catalog-gate/internal/session"
)

// LoginRequest payload for password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the current authentication state.
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	Subject       string     `json:"subject,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// GoogleStartResponse carries the consent URL to open.
type GoogleStartResponse struct {
	AuthURL string `json:"auth_url"`
}

// NewSessionResponse converts a session state.
func NewSessionResponse(state session.State) SessionResponse {
	if !state.Authenticated {
		return SessionResponse{}
	}
	exp := state.ExpiresAt.UTC()
	return SessionResponse{Authenticated: true, Subject: state.Subject, ExpiresAt: &exp}
}
