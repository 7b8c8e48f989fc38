package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const (
	authEmulatorHostEnv = "FIREBASE_AUTH_EMULATOR_HOST"
	cloudPlatformScope  = "https://www.googleapis.com/auth/cloud-platform"
)

// idTokenVerifier is the part of the Firebase auth client the trusted path uses.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseTrustedVerifier validates provider ID tokens through the Firebase
// Admin SDK, which checks them against the securetoken signing keys.
type FirebaseTrustedVerifier struct {
	client idTokenVerifier
	issuer string
}

// NewFirebaseTrustedVerifier builds the trusted path for cfg. credentialsFile
// is an optional service-account JSON file; without it the SDK falls back to
// application default credentials.
func NewFirebaseTrustedVerifier(ctx context.Context, cfg IdentityConfig, credentialsFile string) (*FirebaseTrustedVerifier, error) {
	var opts []option.ClientOption
	switch {
	case credentialsFile != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case os.Getenv(authEmulatorHostEnv) != "":
		opts = append(opts, option.WithoutAuthentication())
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}

	return &FirebaseTrustedVerifier{client: client, issuer: cfg.Issuer()}, nil
}

// Verify implements TokenVerifier.
func (f *FirebaseTrustedVerifier) Verify(ctx context.Context, token string) (*IdentityClaims, error) {
	tok, err := f.client.VerifyIDToken(ctx, token)
	switch {
	case err == nil:
	case fbauth.IsIDTokenExpired(err):
		return nil, newError(KindExpired, err)
	case fbauth.IsCertificateFetchFailed(err):
		return nil, newError(KindKeySetUnavailable, err)
	default:
		return nil, newError(KindSignatureInvalid, err)
	}
	if tok.Issuer != f.issuer {
		return nil, newError(KindIssuerMismatch, fmt.Errorf("unexpected issuer %q", tok.Issuer))
	}
	return claimsFromToken(tok), nil
}

// claimsFromToken converts the SDK token at the decode boundary.
func claimsFromToken(t *fbauth.Token) *IdentityClaims {
	str := func(key string) string {
		v, _ := t.Claims[key].(string)
		return v
	}

	subject := str("uid")
	if subject == "" {
		subject = str("user_id")
	}
	if subject == "" {
		subject = t.UID
	}
	if subject == "" {
		subject = t.Subject
	}

	out := &IdentityClaims{
		Subject:        subject,
		Email:          str("email"),
		Name:           str("name"),
		Picture:        str("picture"),
		SignInProvider: t.Firebase.SignInProvider,
		AuthTime:       t.AuthTime,
		IssuedAt:       time.Unix(t.IssuedAt, 0),
		ExpiresAt:      time.Unix(t.Expires, 0),
	}
	out.EmailVerified, _ = t.Claims["email_verified"].(bool)
	return out
}
