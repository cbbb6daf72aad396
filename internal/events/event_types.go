package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionIssued  EventType = "session_issued"
	EventSessionRevoked EventType = "session_revoked"
	EventSessionPurged  EventType = "session_purged"
)

// AllSessionEvents lists every session lifecycle event type.
var AllSessionEvents = []EventType{EventSessionIssued, EventSessionRevoked, EventSessionPurged}

// Reason explains why a session ended.
type Reason string

const (
	ReasonLogout  Reason = "logout"
	ReasonExpired Reason = "expired"
	ReasonCorrupt Reason = "corrupt"
)

// Event represents a session lifecycle change.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	Reason    Reason    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps a new event with a random ID.
func NewEvent(eventType EventType, subject string, reason Reason, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Reason:    reason,
		Timestamp: at,
	}
}

// SessionIssuedPayload payload.
type SessionIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}
