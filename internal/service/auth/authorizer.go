package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"thakii-backend/internal/domain"
	"thakii-backend/pkg/logger"
)

const bearerPrefix = "Bearer "

// Authorizer runs the request authorization pipeline:
//
//	unauthenticated -> token_extracted -> classified -> verified -> authorization_checked -> admitted
//
// Handlers call RequireAuth or RequireAdmin first and pass the returned
// UserContext on explicitly. A rejection is an *Error whose Stage is the step
// that refused the request.
type Authorizer struct {
	sessions   *SessionManager
	identity   TokenVerifier
	classifier Classifier
	admins     domain.SuperAdminSet
	logger     *logger.Logger
}

// NewAuthorizer wires the verifiers together. admins is the configured
// super-admin set.
func NewAuthorizer(sessions *SessionManager, identity TokenVerifier, admins domain.SuperAdminSet, log *logger.Logger) *Authorizer {
	return &Authorizer{
		sessions:   sessions,
		identity:   identity,
		classifier: NewClassifier(sessions.Issuer()),
		admins:     admins,
		logger:     logger.OrNop(log),
	}
}

// SuperAdmins returns the configured super-admin set.
func (a *Authorizer) SuperAdmins() domain.SuperAdminSet {
	return a.admins
}

// RequireAuth admits any request carrying a valid session or identity token.
func (a *Authorizer) RequireAuth(ctx context.Context, authorization string) (domain.UserContext, error) {
	claims, err := a.authenticate(ctx, authorization)
	if err != nil {
		return domain.UserContext{}, err
	}
	return Normalize(claims, a.admins), nil
}

// RequireAdmin additionally requires admin privilege: the is_admin claim for
// session tokens, super-admin set membership for identity tokens. The admin
// registry is not consulted.
func (a *Authorizer) RequireAdmin(ctx context.Context, authorization string) (domain.UserContext, error) {
	claims, err := a.authenticate(ctx, authorization)
	if err != nil {
		return domain.UserContext{}, err
	}

	user := Normalize(claims, a.admins)
	if !user.IsAdmin {
		a.logger.Info("Admin access denied",
			zap.String("user_id", user.Subject),
			zap.String("token_type", string(user.VerificationPath)))
		return domain.UserContext{}, &Error{Kind: KindInsufficientPrivilege, Stage: StageAuthorizationChecked}
	}
	return user, nil
}

// Exchange verifies an identity provider token and mints a session token
// for it. Presenting a session token is rejected with AlreadySessionToken.
func (a *Authorizer) Exchange(ctx context.Context, authorization string) (string, *SessionClaims, error) {
	token, err := ExtractBearerToken(authorization)
	if err != nil {
		return "", nil, err
	}

	if a.classifier.IsSessionToken(token) {
		if _, err := a.sessions.Verify(token); err != nil {
			return "", nil, failed(err)
		}
		return "", nil, &Error{Kind: KindAlreadySessionToken, Stage: StageClassified}
	}

	identity, err := a.identity.Verify(ctx, token)
	if err != nil {
		return "", nil, failed(err)
	}

	signed, claims, err := a.sessions.Issue(identity)
	if err != nil {
		var authErr *Error
		if errors.As(err, &authErr) {
			return "", nil, failed(err)
		}
		return "", nil, err
	}

	a.logger.Info("Session token issued",
		zap.String("user_id", claims.UserID),
		zap.Bool("is_admin", claims.IsAdmin),
		zap.String("token_hash", claims.TokenHash))
	return signed, claims, nil
}

func (a *Authorizer) authenticate(ctx context.Context, authorization string) (Claims, error) {
	token, err := ExtractBearerToken(authorization)
	if err != nil {
		return nil, err
	}

	if a.classifier.IsSessionToken(token) {
		claims, err := a.sessions.Verify(token)
		if err != nil {
			a.logger.Debug("Session token rejected", zap.String("reason", string(ReasonOf(err))))
			return nil, failed(err)
		}
		return claims, nil
	}

	claims, err := a.identity.Verify(ctx, token)
	if err != nil {
		a.logger.Debug("Identity token rejected", zap.String("reason", string(ReasonOf(err))))
		return nil, failed(err)
	}
	return claims, nil
}

// ExtractBearerToken parses an Authorization header of the form "Bearer <token>".
func ExtractBearerToken(authorization string) (string, error) {
	if strings.TrimSpace(authorization) == "" {
		return "", &Error{Kind: KindAuthHeaderMissing, Stage: StageTokenExtracted}
	}
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return "", &Error{Kind: KindAuthHeaderMalformed, Stage: StageTokenExtracted}
	}
	token := strings.TrimSpace(authorization[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", &Error{Kind: KindAuthHeaderMalformed, Stage: StageTokenExtracted}
	}
	return token, nil
}

func failed(err error) *Error {
	return &Error{Kind: KindAuthenticationFailed, Stage: StageVerified, Err: err}
}
