package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/target/medsurge/config"
	"github.com/target/medsurge/internal/adapters/credwatch"
	"github.com/target/medsurge/internal/domain/guard"
	httpx "github.com/target/medsurge/internal/http"
	"golang.org/x/sync/errgroup"
)

// BuildRouteTable loads the route table file, or the default per-role table.
func BuildRouteTable(cfg config.GuardConfig) (*guard.RouteTable, error) {
	if cfg.RoutesFile == "" {
		return guard.DefaultRouteTable(), nil
	}
	table, err := guard.LoadRouteTable(cfg.RoutesFile)
	if err != nil {
		return nil, fmt.Errorf("load route table %s: %w", cfg.RoutesFile, err)
	}
	return table, nil
}

// BuildGuard returns a guard using the configured redirect targets.
func BuildGuard(cfg config.GuardConfig) *guard.Guard {
	return guard.New(guard.Options{LoginPath: cfg.LoginPath, UnauthorizedPath: cfg.UnauthorizedPath})
}

// BuildBackendClient returns an http.Client for backend data calls. It
// carries the invalidation transport, so a 401 signs the session out.
func BuildBackendClient(c *ServiceContainer) (*http.Client, error) {
	tr, err := buildInvalidationTransport(c)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: tr, Timeout: c.Config.Identity.Timeout}, nil
}

func buildInvalidationTransport(c *ServiceContainer) (*httpx.InvalidationTransport, error) {
	return httpx.NewInvalidationTransport(httpx.InvalidationTransportOptions{
		Store:       c.Store,
		Publisher:   c.Bus,
		Logger:      c.Logger,
		PublicPaths: c.Config.Guard.PublicPaths,
	})
}

// BuildHTTPHandler assembles the console router for c.
func BuildHTTPHandler(c *ServiceContainer) (http.Handler, error) {
	routes, err := BuildRouteTable(c.Config.Guard)
	if err != nil {
		return nil, err
	}

	services := httpx.RouterServices{
		Sessions: c.Sessions,
		Guard:    BuildGuard(c.Config.Guard),
		Routes:   routes,
		Metrics:  c.Telemetry.Handler,
		Logger:   c.Logger,
	}

	if c.Config.HTTP.BackendProxyEnabled() {
		raw := c.Config.HTTP.BackendURL
		if raw == "" {
			raw = c.Config.Identity.BaseURL
		}
		if raw != "" {
			base, err := url.Parse(raw)
			if err != nil || base.Scheme == "" || base.Host == "" {
				return nil, fmt.Errorf("invalid backend url %q", raw)
			}
			tr, err := buildInvalidationTransport(c)
			if err != nil {
				return nil, err
			}
			services.Backend = httpx.NewBackendProxy(base, tr, c.Logger)
		}
	}
	return httpx.NewRouter(services), nil
}

// Serve runs the console until ctx is canceled: the HTTP server, the startup
// credential check and, for the file backend, the credential watcher.
// ln is closed when Serve returns.
func Serve(ctx context.Context, c *ServiceContainer, ln net.Listener) error {
	handler, err := BuildHTTPHandler(c)
	if err != nil {
		return errors.Join(err, ln.Close())
	}
	logger := c.Logger

	watcher, err := buildWatcher(c)
	if err != nil {
		return errors.Join(err, ln.Close())
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: c.Config.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Server:  server,
			Timeout: c.Config.HTTP.ShutdownTimeout,
			Logger:  logger,
		})
	})

	// Region requests answer 503 until this settles.
	g.Go(func() error {
		s := c.Sessions.Start(gctx)
		logger.InfoContext(gctx, "session resolved", "phase", s.Phase, "authenticated", s.IsAuthenticated)
		return nil
	})

	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	return g.Wait()
}

// buildWatcher follows the credential file so sign-ins and sign-outs from
// other processes reach the running console. Nil when not applicable.
func buildWatcher(c *ServiceContainer) (*credwatch.Watcher, error) {
	if c.StorePath == "" || !c.Config.Credential.Watch {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.StorePath), 0o700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	return credwatch.New(credwatch.Options{Path: c.StorePath, Syncer: c.Sessions, Logger: c.Logger})
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// The serve context is already canceled here.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
