package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestNewCredentialStore_Key(t *testing.T) {
	s := NewCredentialStore(nil, CredentialStoreOptions{Origin: " HTTPS://Console.Example.com/ "})
	assert.Equal(t, "credential:https://console.example.com", s.Key())

	s = NewCredentialStore(nil, CredentialStoreOptions{Prefix: "ms:cred:"})
	assert.Equal(t, "ms:cred:default", s.Key())
}

func TestCredentialStore_SetGetClear(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewCredentialStore(client, CredentialStoreOptions{Origin: "http://localhost:3000"})
	ctx := context.Background()

	cred, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, cred.IsZero(), "missing key reads as no credential")

	require.NoError(t, store.Set(ctx, "tok-1"))
	cred, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.Credential("tok-1"), cred)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clear is idempotent")
	cred, err = store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, cred.IsZero())
}

func TestCredentialStore_OriginsAreIsolated(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	ctx := context.Background()

	a := NewCredentialStore(client, CredentialStoreOptions{Origin: "http://a"})
	b := NewCredentialStore(client, CredentialStoreOptions{Origin: "http://b"})

	require.NoError(t, a.Set(ctx, "tok-a"))
	cred, err := b.Get(ctx)
	require.NoError(t, err)
	assert.True(t, cred.IsZero())
}

func TestCredentialStore_TTLAndEmpty(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	ctx := context.Background()

	store := NewCredentialStore(client, CredentialStoreOptions{TTL: time.Hour})
	require.Error(t, store.Set(ctx, ""))
	require.NoError(t, store.Set(ctx, "tok"))

	ttl, err := client.TTL(ctx, store.Key()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}
