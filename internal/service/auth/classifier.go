package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Classifier routes a bearer token to the session or identity provider
// verifier by reading its payload without checking the signature. The
// result is a routing hint only; the chosen verifier decides acceptance.
type Classifier struct {
	issuer string
}

// NewClassifier creates a classifier for session tokens issued by issuer.
func NewClassifier(issuer string) Classifier {
	return Classifier{issuer: issuer}
}

// IsSessionToken reports whether token claims to be a session token.
func (c Classifier) IsSessionToken(token string) bool {
	return IsSessionToken(token, c.issuer)
}

// IsSessionToken reports whether the unverified payload has token_type
// "custom_backend" and the given issuer. Undecodable tokens are not session tokens.
func IsSessionToken(token, issuer string) bool {
	if !isJWTToken(token) {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	tokenType, _ := claims["token_type"].(string)
	iss, _ := claims["iss"].(string)
	return tokenType == SessionTokenType && iss == issuer
}

// isJWTToken checks for the three dot-separated segments of a compact JWS.
func isJWTToken(token string) bool {
	return token != "" && strings.Count(token, ".") == 2
}
