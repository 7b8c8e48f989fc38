package container

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thakii-backend/internal/config"
	"thakii-backend/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:          "test",
		ProjectID:            "lectures-test",
		IdentityProviderHost: "securetoken.google.com",
		JWKSURL:              "http://127.0.0.1:0/jwks",
		JWKSCacheTTL:         time.Hour,
		OutboundTimeout:      time.Second,
		SessionTokenSecret:   "test-secret",
		SessionTokenIssuer:   "thakii-backend",
		SessionTokenAudience: "thakii-frontend",
		SuperAdminEmails:     []string{"root@thakii.test"},
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		mutate      func(*config.Config)
		expectRedis bool
		expectError bool
	}{
		{
			name:        "Container with Redis configured",
			mutate:      func(c *config.Config) { c.RedisURL = "redis://" + mr.Addr() + "/0" },
			expectRedis: true,
		},
		{
			name:        "Container without Redis configured",
			mutate:      func(c *config.Config) {},
			expectRedis: false,
		},
		{
			name:        "Container with invalid Redis URL",
			mutate:      func(c *config.Config) { c.RedisURL = "invalid://redis-url" },
			expectRedis: false, // Redis client initialization fails but container creation succeeds
		},
		{
			name:        "Container with unreachable database",
			mutate:      func(c *config.Config) { c.DatabaseURL = "://not a url" },
			expectError: true,
		},
		{
			name:        "Container without session secret",
			mutate:      func(c *config.Config) { c.SessionTokenSecret = "" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			container, err := New(context.Background(), cfg, logger.NewNop())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, container)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, container)
			defer container.Close()

			assert.Equal(t, tt.expectRedis, container.HasRedis())
			assert.Equal(t, "memory", container.AdminStore.Name())
			assert.NotNil(t, container.Authorizer)
			assert.NotNil(t, container.Admins)
			assert.True(t, container.SuperAdmins.Contains("ROOT@thakii.test"))
			assert.Same(t, cfg, container.GetConfig())
			assert.NotNil(t, container.GetLogger())
		})
	}
}

func TestNew_TrustedVerifierFailureIsNotFatal(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTrustedVerifier = true
	cfg.GoogleCredentialsFile = "/nonexistent/credentials.json"

	container, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer container.Close()
	assert.NotNil(t, container.Authorizer)
}
