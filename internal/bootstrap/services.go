package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/medsurge/config"
	"github.com/target/medsurge/internal/domain/invalidation"
	"github.com/target/medsurge/internal/ports"
	"github.com/target/medsurge/internal/service"
)

// ServiceContainer holds the wired session stack.
type ServiceContainer struct {
	Config    config.AppConfig
	Logger    *slog.Logger
	Store     ports.CredentialStore
	StorePath string
	Gateway   ports.IdentityGateway
	Bus       *invalidation.Bus
	Sessions  *service.SessionManager
	Telemetry Telemetry

	closers []func() error
}

// ServiceContainerOptions overrides adapters, mainly for tests.
type ServiceContainerOptions struct {
	Store   ports.CredentialStore
	Gateway ports.IdentityGateway
}

// NewServiceContainer wires store, gateway, bus, metrics and session manager.
// The session manager is not started; callers decide when to run the startup check.
func NewServiceContainer(ctx context.Context, cfg config.AppConfig, logger *slog.Logger, opts ServiceContainerOptions) (*ServiceContainer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ServiceContainer{Config: cfg, Logger: logger, Bus: invalidation.NewBus()}

	tel, err := BuildTelemetry(ctx, cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, err
	}
	c.Telemetry = tel
	c.closers = append(c.closers, tel.Close)

	c.Store = opts.Store
	if c.Store == nil {
		res, err := BuildCredentialStore(ctx, CredentialStoreConfig{
			Credential: cfg.Credential,
			Redis:      cfg.Redis,
			Origin:     credentialOrigin(cfg),
			Logger:     logger,
		})
		if err != nil {
			return nil, errors.Join(err, c.Close())
		}
		c.Store, c.StorePath = res.Store, res.Path
		c.closers = append(c.closers, res.Close)
	}

	c.Gateway = opts.Gateway
	if c.Gateway == nil {
		gw, err := BuildGateway(ctx, GatewayConfig{Identity: cfg.Identity, Logger: logger})
		if err != nil {
			return nil, errors.Join(err, c.Close())
		}
		c.Gateway = gw
	}

	mgr, err := service.NewSessionManager(service.SessionManagerOptions{
		Store:   c.Store,
		Gateway: c.Gateway,
		Bus:     c.Bus,
		Logger:  logger,
		Metrics: tel.Recorder,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create session manager: %w", err), c.Close())
	}
	c.Sessions = mgr
	return c, nil
}

// credentialOrigin scopes stored credentials to the identity backend in use.
func credentialOrigin(cfg config.AppConfig) string {
	switch cfg.Identity.Mode {
	case config.IdentityModeOIDC:
		return cfg.Identity.OIDC.DiscoveryURL
	case config.IdentityModeMock:
		return "mock"
	default:
		return cfg.Identity.BaseURL
	}
}

// Close releases everything the container opened, newest first.
func (c *ServiceContainer) Close() error {
	if c == nil {
		return nil
	}
	if c.Sessions != nil {
		c.Sessions.Close()
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
