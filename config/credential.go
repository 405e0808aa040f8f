package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CredentialBackend selects where the bearer credential is persisted.
type CredentialBackend string

const (
	// CredentialBackendFile keeps the credential in a 0600 file under Dir.
	CredentialBackendFile CredentialBackend = "file"
	// CredentialBackendRedis keeps the credential under a Redis key.
	CredentialBackendRedis CredentialBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for CredentialBackend.
func (b *CredentialBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis":
		*b = CredentialBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid CredentialBackend: %q (valid options: file, redis)", v)
	}
}

// CredentialConfig controls the credential store.
type CredentialConfig struct {
	Backend CredentialBackend `env:"BACKEND" envDefault:"file"`

	// Dir holds credential files. Defaults to <user config dir>/medsurge.
	Dir string `env:"DIR"`
	// Origin scopes the stored credential, so two backends never share one.
	// Defaults to the identity base URL.
	Origin string `env:"ORIGIN"`

	// KeyPrefix and TTL apply to the Redis backend.
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"medsurge:credential:"`
	TTL       time.Duration `env:"TTL"        envDefault:"0"`

	// Watch follows out-of-band changes to the credential file while serving.
	Watch bool `env:"WATCH" envDefault:"true"`
}

// Sanitize fills derived defaults.
func (c *CredentialConfig) Sanitize() {
	c.Dir = strings.TrimSpace(c.Dir)
	if c.Dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			c.Dir = filepath.Join(base, "medsurge")
		} else {
			c.Dir = ".medsurge"
		}
	}
	if c.TTL < 0 {
		c.TTL = 0
	}
	if c.Backend == CredentialBackendRedis {
		c.Watch = false
	}
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
