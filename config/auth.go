package config

import (
	"fmt"
	"strings"
	"time"
)

// IdentityMode selects the identity gateway implementation.
type IdentityMode string

const (
	// IdentityModeHTTP talks to the backend's /auth endpoints.
	IdentityModeHTTP IdentityMode = "http"
	// IdentityModeOIDC uses an OpenID Connect provider (password grant + userinfo).
	IdentityModeOIDC IdentityMode = "oidc"
	// IdentityModeMock uses the in-process dev gateway (development only).
	IdentityModeMock IdentityMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdentityMode.
func (m *IdentityMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "http", "oidc", "mock":
		*m = IdentityMode(v)
		return nil
	default:
		return fmt.Errorf("invalid IdentityMode: %q (valid options: http, oidc, mock)", v)
	}
}

// OIDCConfig contains OpenID Connect client configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"medsurge"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// RoleClaim names the userinfo claim carrying the application role.
	RoleClaim string `env:"ROLE_CLAIM" envDefault:"role"`
	// GroupRoles maps provider groups to roles when RoleClaim is absent,
	// e.g. "ward-nurses:nurse,er-staff:emergency".
	GroupRoles map[string]string `env:"GROUP_ROLES" envKeyValSeparator:":"`
}

// DevAuthConfig controls the mock identity gateway.
// Used when IDENTITY_MODE=mock for development and testing.
type DevAuthConfig struct {
	// Password for the seeded <role>@test.com accounts.
	Password string `env:"PASSWORD" envDefault:"password"`
	// SigningKey must be stable across CLI invocations or stored tokens stop validating.
	SigningKey      string        `env:"SIGNING_KEY"      envDefault:"medsurge-dev-signing-key"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
}

// IdentityConfig groups identity gateway configuration.
type IdentityConfig struct {
	Mode IdentityMode `env:"MODE" envDefault:"http"`

	// BaseURL is the backend API root used when Mode=http.
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:3001/api"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"15s"`

	// CredentialExpr is a JMESPath expression locating the token in login responses.
	CredentialExpr string `env:"CREDENTIAL_EXPR" envDefault:"access_token"`
	// MessageExprs locate error messages in failure bodies, tried in order.
	MessageExprs []string `env:"MESSAGE_EXPRS" envSeparator:";"`

	OIDC OIDCConfig    `envPrefix:"OIDC_"`
	Dev  DevAuthConfig `envPrefix:"DEV_"`
}

// Sanitize normalises identity settings.
func (c *IdentityConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if strings.TrimSpace(c.CredentialExpr) == "" {
		c.CredentialExpr = "access_token"
	}
	exprs := c.MessageExprs[:0]
	for _, e := range c.MessageExprs {
		if e = strings.TrimSpace(e); e != "" {
			exprs = append(exprs, e)
		}
	}
	c.MessageExprs = exprs
	if c.Dev.SessionDuration <= 0 {
		c.Dev.SessionDuration = 8 * time.Hour
	}
}
