package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/medsurge/config"
	"github.com/target/medsurge/internal/adapters/credfile"
	redisadapter "github.com/target/medsurge/internal/adapters/redis"
	"github.com/target/medsurge/internal/ports"
)

// CredentialStoreConfig contains configuration for the credential store.
type CredentialStoreConfig struct {
	Credential config.CredentialConfig
	Redis      config.RedisConfig
	// Origin scopes the stored credential when Credential.Origin is empty.
	Origin string
	Logger *slog.Logger
}

// CredentialStoreResult carries the store plus what the caller needs to
// watch and release it.
type CredentialStoreResult struct {
	Store ports.CredentialStore
	// Path is the credential file for the file backend, empty otherwise.
	Path  string
	Close func() error
}

// BuildCredentialStore creates the configured credential store.
func BuildCredentialStore(ctx context.Context, cfg CredentialStoreConfig) (CredentialStoreResult, error) {
	origin := cfg.Credential.Origin
	if origin == "" {
		origin = cfg.Origin
	}

	switch cfg.Credential.Backend {
	case config.CredentialBackendRedis:
		client, err := ConnectRedis(ctx, RedisConnConfig{Redis: cfg.Redis, Logger: cfg.Logger})
		if err != nil {
			return CredentialStoreResult{}, fmt.Errorf("connect redis: %w", err)
		}
		store := redisadapter.NewCredentialStore(client, redisadapter.CredentialStoreOptions{
			Origin: origin,
			Prefix: cfg.Credential.KeyPrefix,
			TTL:    cfg.Credential.TTL,
		})
		return CredentialStoreResult{Store: store, Close: client.Close}, nil

	default:
		store := credfile.New(cfg.Credential.Dir, origin)
		return CredentialStoreResult{
			Store: store,
			Path:  store.Path(),
			Close: func() error { return nil },
		}, nil
	}
}
