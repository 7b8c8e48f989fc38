package redis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyJWKS returns the shared key-set document key for a JWKS URL.
func (kb *KeyBuilder) KeyJWKS(jwksURL string) string {
	sum := sha256.Sum256([]byte(jwksURL))
	return kb.BuildKey(fmt.Sprintf(KeyJWKS, hex.EncodeToString(sum[:])[:12]))
}
