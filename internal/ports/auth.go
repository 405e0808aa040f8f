package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// CredentialStore durably holds at most one bearer credential.
// It is a dumb key-value boundary: no validation happens here.
type CredentialStore interface {
	// Get returns the stored credential, or the zero Credential when none is stored.
	Get(ctx context.Context) (domainauth.Credential, error)
	Set(ctx context.Context, c domainauth.Credential) error
	Clear(ctx context.Context) error
}

// IdentityGateway talks to the remote identity endpoint.
// Every returned error is a *domainauth.Error; raw transport errors never escape.
type IdentityGateway interface {
	// Login exchanges email/password for a credential.
	Login(ctx context.Context, email, password string) (domainauth.Credential, error)

	// Validate resolves the user a credential belongs to.
	Validate(ctx context.Context, c domainauth.Credential) (domainauth.User, error)

	// Register creates an account. It never authenticates.
	Register(ctx context.Context, reg domainauth.Registration) (domainauth.User, error)
}

// RoleMapper maps provider groups to an application role.
type RoleMapper interface {
	Map(groups []string) (domainauth.Role, bool)
}
