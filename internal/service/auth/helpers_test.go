package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"

	"thakii-backend/internal/domain"
)

const (
	testProjectID = "lectures-test"
	testHost      = "securetoken.example.com"
	testIssuer    = "https://securetoken.example.com/lectures-test"
	testSecret    = Secret("unit-test-secret")
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type testKey struct {
	kid  string
	priv *rsa.PrivateKey
}

func newTestKey(t *testing.T, kid string) testKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return testKey{kid: kid, priv: priv}
}

// jwksDocument renders the public halves of keys as a JWKS document.
func jwksDocument(t *testing.T, keys ...testKey) []byte {
	t.Helper()
	set := jwk.NewSet()
	for _, k := range keys {
		pub, err := jwk.PublicKeyOf(k.priv)
		require.NoError(t, err)
		require.NoError(t, pub.Set(jwk.KeyIDKey, k.kid))
		require.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256))
		require.NoError(t, set.AddKey(pub))
	}
	payload, err := json.Marshal(set)
	require.NoError(t, err)
	return payload
}

func signRS256(t *testing.T, key testKey, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if key.kid != "" {
		token.Header["kid"] = key.kid
	}
	signed, err := token.SignedString(key.priv)
	require.NoError(t, err)
	return signed
}

// providerClaims returns claims that pass every identity check at testNow.
func providerClaims(uid, email string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            testProjectID,
		"sub":            uid,
		"user_id":        uid,
		"email":          email,
		"email_verified": true,
		"name":           "Test User",
		"auth_time":      testNow.Add(-time.Minute).Unix(),
		"iat":            testNow.Add(-time.Minute).Unix(),
		"exp":            testNow.Add(time.Hour).Unix(),
		"firebase":       map[string]interface{}{"sign_in_provider": "google.com"},
	}
}

// fakeSource is an in-memory KeySetSource whose document can be swapped.
type fakeSource struct {
	mu    sync.Mutex
	body  []byte
	err   error
	calls int
}

func (f *fakeSource) Fetch(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func (f *fakeSource) set(body []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
	f.err = err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(source KeySetSource, clk *clock) *KeySetCache {
	cache := NewKeySetCache(source, time.Hour, nil)
	cache.now = clk.Now
	return cache
}

func newTestIdentityVerifier(cache *KeySetCache, trusted TrustedVerifier, clk *clock) *IdentityVerifier {
	v := NewIdentityVerifier(IdentityConfig{ProjectID: testProjectID, ProviderHost: testHost}, cache, trusted, nil)
	v.now = clk.Now
	return v
}

func newTestSessionManager(t *testing.T, clk *clock, admins ...string) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(SessionConfig{Secret: testSecret}, domain.NewSuperAdminSet(admins...))
	require.NoError(t, err)
	m.now = clk.Now
	return m
}
