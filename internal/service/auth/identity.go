package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"

	"thakii-backend/pkg/logger"
)

// IdentityClaims is the verified identity carried by an identity provider token.
type IdentityClaims struct {
	Subject        string
	Email          string
	Name           string
	Picture        string
	EmailVerified  bool
	SignInProvider string
	AuthTime       int64
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

// TokenVerifier verifies a bearer token issued by the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*IdentityClaims, error)
}

// TrustedVerifier is the administrative verification path, typically backed
// by the provider's own SDK. It is optional.
type TrustedVerifier = TokenVerifier

// IdentityConfig names the provider project tokens must be issued for.
type IdentityConfig struct {
	ProjectID    string
	ProviderHost string
}

// Issuer returns https://<provider-host>/<project-id>.
func (c IdentityConfig) Issuer() string {
	return fmt.Sprintf("https://%s/%s", c.ProviderHost, c.ProjectID)
}

// IdentityVerifier accepts identity provider tokens. It tries the trusted
// verifier first and falls back to signature checks against the cached key set.
type IdentityVerifier struct {
	trusted  TrustedVerifier
	keys     *KeySetCache
	issuer   string
	audience string
	now      func() time.Time
	logger   *logger.Logger
}

// NewIdentityVerifier creates a verifier. trusted may be nil.
func NewIdentityVerifier(cfg IdentityConfig, keys *KeySetCache, trusted TrustedVerifier, log *logger.Logger) *IdentityVerifier {
	return &IdentityVerifier{
		trusted:  trusted,
		keys:     keys,
		issuer:   cfg.Issuer(),
		audience: cfg.ProjectID,
		now:      time.Now,
		logger:   logger.OrNop(log),
	}
}

// Verify implements TokenVerifier. When both paths reject the token the
// fallback's error is returned.
func (v *IdentityVerifier) Verify(ctx context.Context, token string) (*IdentityClaims, error) {
	if v.trusted != nil {
		claims, err := v.trusted.Verify(ctx, token)
		if err == nil {
			return claims, nil
		}
		v.logger.WithError(err).Debug("Trusted verifier rejected token, falling back to key set")
	}
	return v.verifyWithKeySet(ctx, token)
}

// providerTokenClaims is the wire form of an identity provider token.
type providerTokenClaims struct {
	jwt.RegisteredClaims
	UID           string `json:"uid"`
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	EmailVerified bool   `json:"email_verified"`
	AuthTime      int64  `json:"auth_time"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
}

// identity resolves the subject as uid, then user_id, then sub.
func (c *providerTokenClaims) identity() *IdentityClaims {
	subject := c.UID
	if subject == "" {
		subject = c.UserID
	}
	if subject == "" {
		subject = c.Subject
	}
	out := &IdentityClaims{
		Subject:        subject,
		Email:          c.Email,
		Name:           c.Name,
		Picture:        c.Picture,
		EmailVerified:  c.EmailVerified,
		SignInProvider: c.Firebase.SignInProvider,
		AuthTime:       c.AuthTime,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

func (v *IdentityVerifier) verifyWithKeySet(ctx context.Context, token string) (*IdentityClaims, error) {
	if v.keys == nil {
		return nil, newError(KindKeySetUnavailable, errors.New("no key set configured"))
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(token, &providerTokenClaims{})
	if err != nil {
		return nil, newError(KindMalformedToken, err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, newError(KindMalformedToken, errors.New("token header has no kid"))
	}

	key, err := v.keys.FindKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	alg, raw, err := verificationKey(key, unverified.Method.Alg())
	if err != nil {
		return nil, newError(KindSignatureInvalid, err)
	}

	claims := &providerTokenClaims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return raw, nil },
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		classified := classifyJWTError(err)
		v.logger.Debug("Identity token rejected",
			zap.String("kid", kid),
			zap.String("reason", string(classified.Kind)))
		return nil, classified
	}

	return claims.identity(), nil
}

// verificationKey returns the algorithm to enforce and the raw public key.
// The key's declared algorithm wins; the header algorithm is used only when
// the key declares none, and only within the key's own family.
func verificationKey(key jwk.Key, headerAlg string) (string, interface{}, error) {
	alg := key.Algorithm().String()
	if alg == "" {
		alg = headerAlg
	}

	switch key.KeyType() {
	case jwa.RSA:
		if !strings.HasPrefix(alg, "RS") && !strings.HasPrefix(alg, "PS") {
			return "", nil, fmt.Errorf("algorithm %q does not match RSA key", alg)
		}
	case jwa.EC:
		if !strings.HasPrefix(alg, "ES") {
			return "", nil, fmt.Errorf("algorithm %q does not match EC key", alg)
		}
	default:
		return "", nil, fmt.Errorf("unsupported key type %q", key.KeyType())
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return "", nil, fmt.Errorf("failed to export key: %w", err)
	}
	return alg, raw, nil
}

// classifyJWTError maps golang-jwt validation errors onto Kinds.
func classifyJWTError(err error) *Error {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(KindMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newError(KindSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return newError(KindMissingClaim, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(KindExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return newError(KindNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return newError(KindIssuerMismatch, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return newError(KindAudienceMismatch, err)
	default:
		return newError(KindMalformedToken, err)
	}
}

// displayName falls back to the email's local part, then "Unknown".
func displayName(name, email string) string {
	if name != "" {
		return name
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	if email != "" {
		return email
	}
	return "Unknown"
}
