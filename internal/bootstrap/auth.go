package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/medsurge/config"
	"github.com/target/medsurge/internal/adapters/authroles"
	"github.com/target/medsurge/internal/adapters/devauth"
	"github.com/target/medsurge/internal/adapters/identityhttp"
	"github.com/target/medsurge/internal/adapters/oidc"
	"github.com/target/medsurge/internal/ports"
)

// GatewayConfig contains configuration for the identity gateway.
type GatewayConfig struct {
	Identity config.IdentityConfig
	Logger   *slog.Logger
}

var errUnknownIdentityMode = errors.New("unknown identity mode")

// BuildGateway creates the identity gateway for the configured mode.
//
//nolint:ireturn // the mode decides the concrete gateway.
func BuildGateway(ctx context.Context, cfg GatewayConfig) (ports.IdentityGateway, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := cfg.Identity

	switch id.Mode {
	case config.IdentityModeMock:
		gw, err := devauth.NewGateway(devauth.Config{
			SeedAccounts:    true,
			Password:        id.Dev.Password,
			SessionDuration: id.Dev.SessionDuration,
			SigningKey:      []byte(id.Dev.SigningKey),
		})
		if err != nil {
			return nil, fmt.Errorf("create dev identity gateway: %w", err)
		}
		logger.WarnContext(ctx, "using mock identity gateway; do not use in production")
		return gw, nil

	case config.IdentityModeOIDC:
		return buildOIDCGateway(ctx, id)

	case config.IdentityModeHTTP, "":
		gw, err := identityhttp.New(identityhttp.Config{
			BaseURL:        id.BaseURL,
			Timeout:        id.Timeout,
			CredentialExpr: id.CredentialExpr,
			MessageExprs:   id.MessageExprs,
		})
		if err != nil {
			return nil, fmt.Errorf("create http identity gateway: %w", err)
		}
		return gw, nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownIdentityMode, id.Mode)
	}
}

func buildOIDCGateway(ctx context.Context, id config.IdentityConfig) (*oidc.Gateway, error) {
	var mapper ports.RoleMapper
	if len(id.OIDC.GroupRoles) > 0 {
		groups, err := authroles.ParseGroupRoles(id.OIDC.GroupRoles)
		if err != nil {
			return nil, fmt.Errorf("parse group roles: %w", err)
		}
		m, err := authroles.NewStaticRoleMapper(groups)
		if err != nil {
			return nil, fmt.Errorf("create role mapper: %w", err)
		}
		mapper = m
	}

	gw, err := oidc.NewGateway(ctx, oidc.GatewayConfig{
		ClientID:     id.OIDC.ClientID,
		ClientSecret: id.OIDC.ClientSecret,
		Scope:        id.OIDC.Scope,
		DiscoveryURL: id.OIDC.DiscoveryURL,
		RoleClaim:    id.OIDC.RoleClaim,
		RoleMapper:   mapper,
	})
	if err != nil {
		return nil, fmt.Errorf("create oidc identity gateway: %w", err)
	}
	return gw, nil
}
