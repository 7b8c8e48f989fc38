package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"thakii-backend/internal/domain"
)

const (
	SessionTokenType     = "custom_backend"
	SessionTokenVersion  = "1.0"
	SessionTokenLifetime = 72 * time.Hour

	DefaultSessionIssuer   = "thakii-backend"
	DefaultSessionAudience = "thakii-frontend"

	unknownProvider = "unknown"
)

// Secret is the session signing key. It prints as [REDACTED].
type Secret string

const secretRedacted = "[REDACTED]"

func (s Secret) String() string { return secretRedacted }
func (s Secret) GoString() string { return secretRedacted }
func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }
func (s Secret) Value() string { return string(s) }

// SessionClaims is the closed claim set of a session token.
type SessionClaims struct {
	Issuer        string           `json:"iss"`
	Audience      string           `json:"aud"`
	IssuedAt      *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt     *jwt.NumericDate `json:"exp,omitempty"`
	NotBefore     *jwt.NumericDate `json:"nbf,omitempty"`
	UserID        string           `json:"user_id"`
	Email         string           `json:"email"`
	Name          string           `json:"name"`
	Picture       string           `json:"picture"`
	EmailVerified bool             `json:"email_verified"`
	TokenType     string           `json:"token_type"`
	TokenVersion  string           `json:"token_version"`
	IsAdmin       bool             `json:"is_admin"`
	Provider      string           `json:"firebase_provider"`
	AuthTime      int64            `json:"auth_time"`
	TokenHash     string           `json:"token_hash"`
}

func (c *SessionClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *SessionClaims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt, nil }
func (c *SessionClaims) GetNotBefore() (*jwt.NumericDate, error) { return c.NotBefore, nil }
func (c *SessionClaims) GetIssuer() (string, error) { return c.Issuer, nil }
func (c *SessionClaims) GetSubject() (string, error) { return c.UserID, nil }

func (c *SessionClaims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

// SessionConfig configures the session token manager.
type SessionConfig struct {
	Secret   Secret
	Issuer   string
	Audience string
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	secret   []byte
	issuer   string
	audience string
	admins   domain.SuperAdminSet
	now      func() time.Time
}

// NewSessionManager creates a manager. Empty issuer or audience use the defaults.
func NewSessionManager(cfg SessionConfig, admins domain.SuperAdminSet) (*SessionManager, error) {
	if cfg.Secret.Value() == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultSessionIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultSessionAudience
	}
	return &SessionManager{
		secret:   []byte(cfg.Secret.Value()),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		admins:   admins,
		now:      time.Now,
	}, nil
}

// Issuer returns the iss value stamped on issued tokens.
func (m *SessionManager) Issuer() string {
	return m.issuer
}

// Issue mints a session token for a verified identity. The admin flag is
// computed from the super-admin set.
func (m *SessionManager) Issue(identity *IdentityClaims) (string, *SessionClaims, error) {
	if identity == nil || identity.Subject == "" {
		return "", nil, newError(KindMissingClaim, errors.New("identity has no subject"))
	}
	if identity.Email == "" {
		return "", nil, newError(KindMissingClaim, errors.New("identity has no email"))
	}

	iat := m.now().Truncate(time.Second)
	provider := identity.SignInProvider
	if provider == "" {
		provider = unknownProvider
	}

	claims := &SessionClaims{
		Issuer:        m.issuer,
		Audience:      m.audience,
		IssuedAt:      jwt.NewNumericDate(iat),
		ExpiresAt:     jwt.NewNumericDate(iat.Add(SessionTokenLifetime)),
		UserID:        identity.Subject,
		Email:         identity.Email,
		Name:          displayName(identity.Name, identity.Email),
		Picture:       identity.Picture,
		EmailVerified: identity.EmailVerified,
		TokenType:     SessionTokenType,
		TokenVersion:  SessionTokenVersion,
		IsAdmin:       m.admins.Contains(identity.Email),
		Provider:      provider,
		AuthTime:      identity.AuthTime,
		TokenHash:     fingerprint(identity.Subject, identity.Email, iat.Unix()),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, issuer, audience, lifetime, required claims and
// token type, in that order of precedence for reporting.
func (m *SessionManager) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	switch {
	case claims.IssuedAt == nil:
		return nil, newError(KindMissingClaim, errors.New("iat claim is required"))
	case claims.UserID == "":
		return nil, newError(KindMissingClaim, errors.New("user_id claim is required"))
	case claims.Email == "":
		return nil, newError(KindMissingClaim, errors.New("email claim is required"))
	case claims.TokenType != SessionTokenType:
		return nil, newError(KindWrongTokenType, fmt.Errorf("token_type %q", claims.TokenType))
	}
	return claims, nil
}

// fingerprint is the first 16 hex characters of sha256("user_id:email:iat").
func fingerprint(userID, email string, iat int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", userID, email, iat)))
	return hex.EncodeToString(sum[:])[:16]
}
