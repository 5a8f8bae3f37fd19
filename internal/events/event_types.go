package events

import (
	"time"

	"github.com/spec-kit/calculation-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventUserLoggedIn       EventType = "user_logged_in"
	EventTokenRevoked       EventType = "token_revoked"
	EventCalculationCreated EventType = "calculation_created"
	EventCalculationUpdated EventType = "calculation_updated"
	EventCalculationDeleted EventType = "calculation_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// UserLoggedInPayload payload.
type UserLoggedInPayload struct {
	Username string `json:"username"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	JTI       string    `json:"jti"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Reason    string    `json:"reason"`
}

// CalculationCreatedPayload payload.
type CalculationCreatedPayload struct {
	CalculationID string                 `json:"calculation_id"`
	Type          domain.CalculationType `json:"type"`
	Result        float64                `json:"result"`
}

// CalculationUpdatedPayload payload.
type CalculationUpdatedPayload struct {
	CalculationID string  `json:"calculation_id"`
	Result        float64 `json:"result"`
}

// CalculationDeletedPayload payload.
type CalculationDeletedPayload struct {
	CalculationID string `json:"calculation_id"`
}
