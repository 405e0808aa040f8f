package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: identity gateway configuration
//   - credential.go: credential store and Redis configuration
//   - http.go: console server and route guard configuration
//   - observability.go: logging and metrics configuration
type AppConfig struct {
	// IsDev relaxes production guardrails (mock identity is only allowed in dev).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Identity   IdentityConfig   `envPrefix:"IDENTITY_"`
	Credential CredentialConfig `envPrefix:"CREDENTIAL_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`

	HTTP  HTTPConfig
	Guard GuardConfig `envPrefix:"GUARD_"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.Identity.Sanitize()
	c.Credential.Sanitize()
	c.HTTP.Sanitize()
	c.Guard.Sanitize()
	c.Observability.Sanitize()
}

// Validate reports combinations Sanitize cannot repair.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Identity.Mode == IdentityModeMock && !c.IsDev {
		errs = append(errs, errors.New("IDENTITY_MODE=mock requires DEV=true"))
	}
	if c.Identity.Mode == IdentityModeOIDC && c.Identity.OIDC.DiscoveryURL == "" {
		errs = append(errs, errors.New("IDENTITY_OIDC_DISCOVERY_URL is required when IDENTITY_MODE=oidc"))
	}
	if c.Identity.Mode == IdentityModeHTTP && c.Identity.BaseURL == "" {
		errs = append(errs, errors.New("IDENTITY_BASE_URL is required when IDENTITY_MODE=http"))
	}
	if c.Identity.OIDC.GroupRoles != nil && c.Identity.Mode != IdentityModeOIDC {
		errs = append(errs, fmt.Errorf("IDENTITY_OIDC_GROUP_ROLES has no effect when IDENTITY_MODE=%s", c.Identity.Mode))
	}
	return errors.Join(errs...)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
