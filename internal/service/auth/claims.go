package auth

import (
	"time"

	"thakii-backend/internal/domain"
)

// Claims is the verified payload of either token kind. It is implemented
// only by *SessionClaims and *IdentityClaims.
type Claims interface {
	VerificationPath() domain.VerificationPath
	sealed()
}

func (*SessionClaims) VerificationPath() domain.VerificationPath { return domain.PathSession }
func (*IdentityClaims) VerificationPath() domain.VerificationPath { return domain.PathIdentityProvider }

func (*SessionClaims) sealed() {}
func (*IdentityClaims) sealed() {}

// Normalize converts verified claims into the request's UserContext.
// Session tokens carry their own admin flag; identity tokens are checked
// against the super-admin set.
func Normalize(c Claims, admins domain.SuperAdminSet) domain.UserContext {
	switch v := c.(type) {
	case *SessionClaims:
		user := domain.UserContext{
			Subject:          v.UserID,
			Email:            v.Email,
			Name:             displayName(v.Name, v.Email),
			Picture:          v.Picture,
			EmailVerified:    v.EmailVerified,
			IsAdmin:          v.IsAdmin,
			Provider:         v.Provider,
			AuthTime:         v.AuthTime,
			VerificationPath: domain.PathSession,
		}
		if v.IssuedAt != nil {
			user.IssuedAt = timePtr(v.IssuedAt.Time)
		}
		if v.ExpiresAt != nil {
			user.ExpiresAt = timePtr(v.ExpiresAt.Time)
		}
		return user
	case *IdentityClaims:
		user := domain.UserContext{
			Subject:          v.Subject,
			Email:            v.Email,
			Name:             displayName(v.Name, v.Email),
			Picture:          v.Picture,
			EmailVerified:    v.EmailVerified,
			IsAdmin:          admins.Contains(v.Email),
			Provider:         v.SignInProvider,
			AuthTime:         v.AuthTime,
			VerificationPath: domain.PathIdentityProvider,
		}
		if !v.IssuedAt.IsZero() {
			user.IssuedAt = timePtr(v.IssuedAt)
		}
		if !v.ExpiresAt.IsZero() {
			user.ExpiresAt = timePtr(v.ExpiresAt)
		}
		return user
	default:
		return domain.UserContext{}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
