package config

import (
	"strings"
	"time"

	"github.com/target/medsurge/internal/domain/guard"
)

// HTTPConfig contains console server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the console server to. Loopback by default:
	// the console acts with the stored credential of whoever runs it.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8088"`

	// BackendURL is proxied under /backend with the stored credential attached.
	// Defaults to the identity base URL; "-" disables the proxy.
	BackendURL string `env:"HTTP_BACKEND_URL"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"    envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = "127.0.0.1:8088"
	}
	h.BackendURL = strings.TrimRight(strings.TrimSpace(h.BackendURL), "/")
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 5 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// BackendProxyEnabled reports whether /backend should be mounted.
func (h *HTTPConfig) BackendProxyEnabled() bool { return h.BackendURL != "-" }

// GuardConfig controls route protection.
type GuardConfig struct {
	// RoutesFile is a TOML route table; empty uses one region per role.
	RoutesFile       string `env:"ROUTES_FILE"`
	LoginPath        string `env:"LOGIN_PATH"        envDefault:"/login"`
	UnauthorizedPath string `env:"UNAUTHORIZED_PATH" envDefault:"/unauthorized"`
	// PublicPaths never force a logout when the backend answers 401.
	PublicPaths []string `env:"PUBLIC_PATHS" envDefault:"/login,/signup,/register"`
}

// Sanitize normalises guard paths.
func (g *GuardConfig) Sanitize() {
	g.RoutesFile = strings.TrimSpace(g.RoutesFile)
	g.LoginPath = normalizePath(g.LoginPath, guard.DefaultLoginPath)
	g.UnauthorizedPath = normalizePath(g.UnauthorizedPath, guard.DefaultUnauthorizedPath)

	paths := make([]string, 0, len(g.PublicPaths))
	for _, p := range g.PublicPaths {
		p = strings.Trim(strings.ToLower(strings.TrimSpace(p)), "/")
		if p != "" {
			paths = append(paths, "/"+p)
		}
	}
	g.PublicPaths = paths
}

func normalizePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
