package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"thakii-backend/internal/domain"
)

const superAdmin = "root@example.com"

type authorizerFixture struct {
	authorizer *Authorizer
	sessions   *SessionManager
	source     *fakeSource
	key        testKey
}

func newAuthorizerFixture(t *testing.T) *authorizerFixture {
	t.Helper()
	clk := newClock(testNow)
	key := newTestKey(t, "k1")
	source := &fakeSource{body: jwksDocument(t, key)}
	sessions := newTestSessionManager(t, clk, superAdmin)
	identity := newTestIdentityVerifier(newTestCache(source, clk), nil, clk)

	return &authorizerFixture{
		authorizer: NewAuthorizer(sessions, identity, domain.NewSuperAdminSet(superAdmin), nil),
		sessions:   sessions,
		source:     source,
		key:        key,
	}
}

func (f *authorizerFixture) sessionHeader(t *testing.T, email string) string {
	t.Helper()
	token, _, err := f.sessions.Issue(&IdentityClaims{Subject: "uid-" + email, Email: email})
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *authorizerFixture) providerHeader(t *testing.T, email string) string {
	t.Helper()
	return "Bearer " + signRS256(t, f.key, providerClaims("uid-"+email, email))
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		want   Kind
	}{
		{name: "valid", header: "Bearer abc.def.ghi", token: "abc.def.ghi"},
		{name: "trailing space trimmed", header: "Bearer abc ", token: "abc"},
		{name: "empty", header: "", want: KindAuthHeaderMissing},
		{name: "whitespace only", header: "   ", want: KindAuthHeaderMissing},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", want: KindAuthHeaderMalformed},
		{name: "lowercase scheme", header: "bearer abc", want: KindAuthHeaderMalformed},
		{name: "no token", header: "Bearer ", want: KindAuthHeaderMalformed},
		{name: "two tokens", header: "Bearer a b", want: KindAuthHeaderMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ExtractBearerToken(tt.header)
			if tt.want != "" {
				assert.Equal(t, tt.want, KindOf(err))
				assert.Equal(t, StageTokenExtracted, err.(*Error).Stage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestAuthorizer_RequireAuth(t *testing.T) {
	f := newAuthorizerFixture(t)
	ctx := context.Background()

	t.Run("session token", func(t *testing.T) {
		user, err := f.authorizer.RequireAuth(ctx, f.sessionHeader(t, "a@b.com"))
		require.NoError(t, err)
		assert.Equal(t, domain.PathSession, user.VerificationPath)
		assert.Equal(t, "a@b.com", user.Email)
		assert.False(t, user.IsAdmin)
		require.NotNil(t, user.ExpiresAt)
		assert.Equal(t, testNow.Add(SessionTokenLifetime).Unix(), user.ExpiresAt.Unix())
	})

	t.Run("provider token", func(t *testing.T) {
		user, err := f.authorizer.RequireAuth(ctx, f.providerHeader(t, "user@example.com"))
		require.NoError(t, err)
		assert.Equal(t, domain.PathIdentityProvider, user.VerificationPath)
		assert.Equal(t, "uid-user@example.com", user.Subject)
		assert.False(t, user.IsAdmin)
	})

	t.Run("forged session token is rejected by the session verifier", func(t *testing.T) {
		forger, err := NewSessionManager(SessionConfig{Secret: "attacker"}, domain.NewSuperAdminSet(superAdmin))
		require.NoError(t, err)
		forger.now = func() time.Time { return testNow }
		token, _, err := forger.Issue(&IdentityClaims{Subject: "x", Email: superAdmin})
		require.NoError(t, err)

		_, err = f.authorizer.RequireAuth(ctx, "Bearer "+token)
		require.Error(t, err)
		assert.Equal(t, KindAuthenticationFailed, KindOf(err))
		assert.Equal(t, KindSignatureInvalid, ReasonOf(err))
		assert.Equal(t, StageVerified, err.(*Error).Stage)
	})

	t.Run("expired session token", func(t *testing.T) {
		header := f.sessionHeader(t, "a@b.com")
		f.sessions.now = func() time.Time { return testNow.Add(73 * time.Hour) }
		defer func() { f.sessions.now = func() time.Time { return testNow } }()

		_, err := f.authorizer.RequireAuth(ctx, header)
		assert.Equal(t, KindAuthenticationFailed, KindOf(err))
		assert.Equal(t, KindExpired, ReasonOf(err))
	})
}

func TestAuthorizer_RequireAdmin(t *testing.T) {
	f := newAuthorizerFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		header func(t *testing.T) string
		admin  bool
		want   Kind
	}{
		{
			name:   "session token minted for super admin",
			header: func(t *testing.T) string { return f.sessionHeader(t, superAdmin) },
			admin:  true,
		},
		{
			name:   "provider token of super admin",
			header: func(t *testing.T) string { return f.providerHeader(t, "ROOT@example.com") },
			admin:  true,
		},
		{
			name:   "session token of regular user",
			header: func(t *testing.T) string { return f.sessionHeader(t, "user@example.com") },
			want:   KindInsufficientPrivilege,
		},
		{
			name:   "provider token of regular user",
			header: func(t *testing.T) string { return f.providerHeader(t, "user@example.com") },
			want:   KindInsufficientPrivilege,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.authorizer.RequireAdmin(ctx, tt.header(t))
			if tt.want != "" {
				require.Error(t, err)
				assert.Equal(t, tt.want, KindOf(err))
				assert.Equal(t, StageAuthorizationChecked, err.(*Error).Stage)
				assert.Empty(t, user.Subject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.admin, user.IsAdmin)
		})
	}
}

// Scenario A: a freshly issued session token verifies as a non-admin session.
func TestScenarioA_SessionRoundTrip(t *testing.T) {
	f := newAuthorizerFixture(t)

	token, _, err := f.sessions.Issue(&IdentityClaims{Subject: "u1", Email: "a@b.com"})
	require.NoError(t, err)
	assert.True(t, f.authorizer.classifier.IsSessionToken(token))

	claims, err := f.sessions.Verify(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)
	assert.Equal(t, "u1", claims.UserID)
}

// Scenario B: a missing header is rejected before any verifier runs.
func TestScenarioB_MissingHeader(t *testing.T) {
	clk := newClock(testNow)
	identity := &mockTrustedVerifier{}
	sessions := newTestSessionManager(t, clk, superAdmin)
	authorizer := NewAuthorizer(sessions, identity, domain.NewSuperAdminSet(superAdmin), nil)

	_, err := authorizer.RequireAdmin(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, KindAuthHeaderMissing, KindOf(err))
	identity.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

// Scenario C: without a trusted path, the key-set fallback admits a valid provider token.
func TestScenarioC_FallbackWithoutTrustedPath(t *testing.T) {
	f := newAuthorizerFixture(t)

	user, err := f.authorizer.RequireAuth(context.Background(), f.providerHeader(t, "user@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "uid-user@example.com", user.Subject)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, 1, f.source.callCount())
}

func TestAuthorizer_Exchange(t *testing.T) {
	f := newAuthorizerFixture(t)
	ctx := context.Background()

	t.Run("provider token is exchanged", func(t *testing.T) {
		token, claims, err := f.authorizer.Exchange(ctx, f.providerHeader(t, superAdmin))
		require.NoError(t, err)
		assert.True(t, claims.IsAdmin)
		assert.Equal(t, "google.com", claims.Provider)

		user, err := f.authorizer.RequireAdmin(ctx, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, domain.PathSession, user.VerificationPath)
	})

	t.Run("session token cannot be exchanged again", func(t *testing.T) {
		_, _, err := f.authorizer.Exchange(ctx, f.sessionHeader(t, "a@b.com"))
		assert.Equal(t, KindAlreadySessionToken, KindOf(err))
	})

	t.Run("invalid provider token", func(t *testing.T) {
		_, _, err := f.authorizer.Exchange(ctx, "Bearer not-a-jwt")
		assert.Equal(t, KindAuthenticationFailed, KindOf(err))
		assert.Equal(t, KindMalformedToken, ReasonOf(err))
	})

	t.Run("missing header", func(t *testing.T) {
		_, _, err := f.authorizer.Exchange(ctx, "")
		assert.Equal(t, KindAuthHeaderMissing, KindOf(err))
	})
}
