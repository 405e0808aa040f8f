package ports_test

import (
	"testing"

	"github.com/target/medsurge/internal/mocks"
	mockauth "github.com/target/medsurge/internal/mocks/auth"
	"github.com/target/medsurge/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityGateway = (*mockauth.MockIdentityGateway)(nil)
	var _ ports.CredentialStore = (*mockauth.MemoryCredentialStore)(nil)
	var _ ports.RoleMapper = (*mockauth.StaticRoleMapper)(nil)
	var _ ports.IdentityGateway = (*mocks.MockIdentityGateway)(nil)
	var _ ports.CredentialStore = (*mocks.MockCredentialStore)(nil)
}
