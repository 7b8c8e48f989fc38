package container

import (
	"context"
	"fmt"

	"thakii-backend/internal/config"
	"thakii-backend/internal/domain"
	"thakii-backend/internal/repository"
	"thakii-backend/internal/service/admin"
	"thakii-backend/internal/service/auth"
	"thakii-backend/pkg/database"
	"thakii-backend/pkg/logger"
	"thakii-backend/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	DB          *database.PostgresDB

	SuperAdmins domain.SuperAdminSet
	KeySet      *auth.KeySetCache
	Sessions    *auth.SessionManager
	Authorizer  *auth.Authorizer
	AdminStore  admin.Store
	Admins      *admin.Registry
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	log = logger.OrNop(log)
	c := &Container{
		Config:      cfg,
		Logger:      log,
		SuperAdmins: domain.NewSuperAdminSet(cfg.SuperAdminEmails...),
	}

	// Initialize Redis client if Redis URL is configured
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Named("redis").Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without shared key-set cache")
		} else {
			c.RedisClient = client
			log.WithField("key_prefix", client.KeyBuilder.GetPrefix()).Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without shared key-set cache")
	}

	// Admin store: PostgreSQL when configured, process memory otherwise
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		c.AdminStore = repository.NewAdminRepository(db)
		log.Info("Admin registry backed by PostgreSQL")
	} else {
		c.AdminStore = admin.NewMemoryStore()
		log.Warn("DATABASE_URL not configured, admin registry is in-memory and will not persist")
	}

	provider := auth.NewHTTPKeySetSource(cfg.JWKSURL, cfg.OutboundTimeout)
	var source auth.KeySetSource = provider
	if c.RedisClient != nil {
		source = auth.NewRedisKeySetSource(source, c.RedisClient,
			c.RedisClient.KeyBuilder.KeyJWKS(cfg.JWKSURL), cfg.JWKSCacheTTL, log.Named("keyset"))
	}
	c.KeySet = auth.NewKeySetCache(source, cfg.JWKSCacheTTL, log.Named("keyset"))
	log.WithFields(map[string]interface{}{
		"jwks_url":  provider.URL(),
		"cache_ttl": cfg.JWKSCacheTTL.String(),
		"shared":    c.RedisClient != nil,
	}).Info("Key set cache configured")

	identityCfg := auth.IdentityConfig{ProjectID: cfg.ProjectID, ProviderHost: cfg.IdentityProviderHost}

	var trusted auth.TrustedVerifier
	if cfg.EnableTrustedVerifier {
		v, err := auth.NewFirebaseTrustedVerifier(ctx, identityCfg, cfg.GoogleCredentialsFile)
		if err != nil {
			log.WithError(err).Warn("Trusted verifier unavailable, using key-set verification only")
		} else {
			trusted = v
			log.Info("Trusted identity verifier enabled")
		}
	}
	identity := auth.NewIdentityVerifier(identityCfg, c.KeySet, trusted, log.Named("identity"))

	sessions, err := auth.NewSessionManager(auth.SessionConfig{
		Secret:   auth.Secret(cfg.SessionTokenSecret),
		Issuer:   cfg.SessionTokenIssuer,
		Audience: cfg.SessionTokenAudience,
	}, c.SuperAdmins)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	c.Sessions = sessions

	c.Authorizer = auth.NewAuthorizer(sessions, identity, c.SuperAdmins, log.Named("authorizer"))
	c.Admins = admin.NewRegistry(c.AdminStore, c.SuperAdmins, log.Named("admin"))

	log.WithFields(map[string]interface{}{
		"project_id":   cfg.ProjectID,
		"super_admins": c.SuperAdmins.Len(),
		"admin_store":  c.AdminStore.Name(),
	}).Info("Container initialized")

	return c, nil
}

// Close releases the database pool and Redis connection
func (c *Container) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
