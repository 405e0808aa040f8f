package redis

// Package redis provides Redis-backed adapters for the session layer.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// CredentialStore keeps the bearer credential in Redis so several console
// processes for the same origin share one sign-in.
type CredentialStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// CredentialStoreOptions configures a CredentialStore.
type CredentialStoreOptions struct {
	// Origin scopes the key; it is normalized to lower case without a trailing slash.
	Origin string
	// Prefix defaults to "credential:".
	Prefix string
	// TTL bounds how long an unused credential is kept. Zero keeps it until cleared.
	TTL time.Duration
}

// NewCredentialStore creates a Redis-backed credential store.
func NewCredentialStore(client redis.UniversalClient, opts CredentialStoreOptions) *CredentialStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "credential:"
	}
	origin := strings.TrimRight(strings.ToLower(strings.TrimSpace(opts.Origin)), "/")
	if origin == "" {
		origin = "default"
	}
	return &CredentialStore{client: client, key: prefix + origin, ttl: opts.TTL}
}

// Key returns the Redis key holding the credential.
func (s *CredentialStore) Key() string { return s.key }

func (s *CredentialStore) Get(ctx context.Context) (domainauth.Credential, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return domainauth.Credential(val), nil
}

func (s *CredentialStore) Set(ctx context.Context, c domainauth.Credential) error {
	if c.IsZero() {
		return errors.New("credential cannot be empty")
	}
	if err := s.client.Set(ctx, s.key, string(c), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
