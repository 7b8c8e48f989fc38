package domain

import "time"

// VerificationPath records which verifier admitted a request.
type VerificationPath string

const (
	PathSession          VerificationPath = "session"
	PathIdentityProvider VerificationPath = "identity_provider"
)

// UserContext is the normalized identity attached to an admitted request.
// Handlers receive it by parameter from the authorizer.
type UserContext struct {
	Subject          string           `json:"uid"`
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	Picture          string           `json:"picture,omitempty"`
	EmailVerified    bool             `json:"email_verified"`
	IsAdmin          bool             `json:"is_admin"`
	Provider         string           `json:"provider,omitempty"`
	AuthTime         int64            `json:"auth_time,omitempty"`
	VerificationPath VerificationPath `json:"token_type"`
	IssuedAt         *time.Time       `json:"token_issued_at,omitempty"`
	ExpiresAt        *time.Time       `json:"token_expires_at,omitempty"`
}
