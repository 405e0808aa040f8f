package config

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Identity.Mode != IdentityModeHTTP {
		t.Fatalf("expected http identity mode, got %q", cfg.Identity.Mode)
	}
	if cfg.Identity.BaseURL != "http://localhost:3001/api" {
		t.Fatalf("unexpected base url %q", cfg.Identity.BaseURL)
	}
	if cfg.Identity.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Identity.Timeout)
	}
	if cfg.Credential.Backend != CredentialBackendFile || cfg.Credential.Dir == "" || !cfg.Credential.Watch {
		t.Fatalf("unexpected credential config %#v", cfg.Credential)
	}
	if cfg.HTTP.Addr != "127.0.0.1:8088" || !cfg.HTTP.BackendProxyEnabled() {
		t.Fatalf("unexpected http config %#v", cfg.HTTP)
	}
	if !reflect.DeepEqual(cfg.Guard.PublicPaths, []string{"/login", "/signup", "/register"}) {
		t.Fatalf("unexpected public paths %v", cfg.Guard.PublicPaths)
	}
	if cfg.Observability.Metrics.Backend != MetricsBackendNone {
		t.Fatalf("expected metrics off by default, got %q", cfg.Observability.Metrics.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestAppConfig_ParseIdentityEnv(t *testing.T) {
	t.Setenv("IDENTITY_MODE", "OIDC")
	t.Setenv("IDENTITY_TIMEOUT", "3s")
	t.Setenv("IDENTITY_MESSAGE_EXPRS", "detail; error.message ;")
	t.Setenv("IDENTITY_OIDC_CLIENT_ID", "console")
	t.Setenv("IDENTITY_OIDC_CLIENT_SECRET", "super-secret")
	t.Setenv("IDENTITY_OIDC_DISCOVERY_URL", "https://login.example.com/.well-known/openid-configuration")
	t.Setenv("IDENTITY_OIDC_GROUP_ROLES", "ward-nurses:nurse,er-staff:emergency")
	t.Setenv("IDENTITY_DEV_PASSWORD", "dev-pass")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	expectedOIDC := OIDCConfig{
		ClientID:     "console",
		ClientSecret: "super-secret",
		Scope:        "openid profile email groups",
		DiscoveryURL: "https://login.example.com/.well-known/openid-configuration",
		RoleClaim:    "role",
		GroupRoles:   map[string]string{"ward-nurses": "nurse", "er-staff": "emergency"},
	}
	if cfg.Identity.Mode != IdentityModeOIDC {
		t.Fatalf("expected oidc mode, got %q", cfg.Identity.Mode)
	}
	if !reflect.DeepEqual(cfg.Identity.OIDC, expectedOIDC) {
		t.Fatalf("unexpected oidc configuration:\nexpected: %#v\ngot:      %#v", expectedOIDC, cfg.Identity.OIDC)
	}
	if !reflect.DeepEqual(cfg.Identity.MessageExprs, []string{"detail", "error.message"}) {
		t.Fatalf("unexpected message exprs %q", cfg.Identity.MessageExprs)
	}
	if cfg.Identity.Timeout != 3*time.Second || cfg.Identity.Dev.Password != "dev-pass" {
		t.Fatalf("unexpected identity config %#v", cfg.Identity)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"IDENTITY_MODE", "ldap"},
		{"CREDENTIAL_BACKEND", "sqlite"},
		{"OBSERVABILITY_METRICS_BACKEND", "graphite"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			var cfg AppConfig
			if err := env.Parse(&cfg); err == nil {
				t.Fatalf("expected parse error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{
			name:    "mock outside dev",
			mutate:  func(c *AppConfig) { c.Identity.Mode = IdentityModeMock },
			wantErr: "requires DEV=true",
		},
		{
			name: "mock in dev",
			mutate: func(c *AppConfig) {
				c.Identity.Mode = IdentityModeMock
				c.IsDev = true
			},
		},
		{
			name:    "oidc without discovery",
			mutate:  func(c *AppConfig) { c.Identity.Mode = IdentityModeOIDC },
			wantErr: "IDENTITY_OIDC_DISCOVERY_URL",
		},
		{
			name:    "http without base url",
			mutate:  func(c *AppConfig) { c.Identity.BaseURL = "" },
			wantErr: "IDENTITY_BASE_URL",
		},
		{
			name:    "group roles outside oidc",
			mutate:  func(c *AppConfig) { c.Identity.OIDC.GroupRoles = map[string]string{"g": "nurse"} },
			wantErr: "no effect",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Identity: IdentityConfig{Mode: IdentityModeHTTP, BaseURL: "http://x"}}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatal("expected NODE_ENV=development to enable dev mode")
	}
}

func TestCredentialConfig_Sanitize(t *testing.T) {
	c := CredentialConfig{Backend: CredentialBackendRedis, Watch: true, TTL: -time.Second, Dir: "  /tmp/x "}
	c.Sanitize()
	if c.Watch {
		t.Fatal("watch must be disabled for redis backend")
	}
	if c.TTL != 0 {
		t.Fatalf("negative ttl should clamp to 0, got %v", c.TTL)
	}
	if c.Dir != "/tmp/x" {
		t.Fatalf("unexpected dir %q", c.Dir)
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	h := HTTPConfig{BackendURL: " http://api.local/ "}
	h.Sanitize()
	if h.Addr != "127.0.0.1:8088" || h.BackendURL != "http://api.local" {
		t.Fatalf("unexpected http config %#v", h)
	}
	if h.ReadHeaderTimeout != 5*time.Second || h.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts %#v", h)
	}

	h.BackendURL = "-"
	if h.BackendProxyEnabled() {
		t.Fatal("'-' must disable the backend proxy")
	}
}

func TestGuardConfig_Sanitize(t *testing.T) {
	g := GuardConfig{LoginPath: "signin", PublicPaths: []string{" /Login ", "", "signup/", "/"}}
	g.Sanitize()
	if g.LoginPath != "/signin" || g.UnauthorizedPath != "/unauthorized" {
		t.Fatalf("unexpected guard paths %#v", g)
	}
	if !reflect.DeepEqual(g.PublicPaths, []string{"/login", "/signup"}) {
		t.Fatalf("unexpected public paths %q", g.PublicPaths)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Backend: MetricsBackendStatsd, StatsdAddress: "   ", Prefix: ".app."}
	cfg.Sanitize()
	if cfg.Backend != MetricsBackendNone {
		t.Fatalf("expected statsd without address to fall back to none, got %q", cfg.Backend)
	}
	if cfg.Prefix != "app" {
		t.Fatalf("unexpected prefix %q", cfg.Prefix)
	}

	cfg = ObservabilityMetricsConfig{Backend: MetricsBackendPrometheus}
	cfg.Sanitize()
	if cfg.Backend != MetricsBackendPrometheus || cfg.Prefix != defaultMetricsPrefix {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestObservabilityConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		c := ObservabilityConfig{LogLevel: in}
		c.Sanitize()
		if got := c.SlogLevel(); got != want {
			t.Fatalf("%s: expected %v, got %v", in, want, got)
		}
	}
}
