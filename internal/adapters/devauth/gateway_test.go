package devauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	"golang.org/x/crypto/bcrypt"
)

func newTestGateway(t *testing.T, now func() time.Time) *Gateway {
	t.Helper()
	g, err := NewGateway(Config{SeedAccounts: true, Cost: bcrypt.MinCost, Now: now})
	require.NoError(t, err)
	return g
}

func TestGateway_SeededAccounts(t *testing.T) {
	g := newTestGateway(t, nil)
	ctx := context.Background()

	for _, r := range domainauth.AllRoles() {
		cred, err := g.Login(ctx, string(r)+"@test.com", DefaultPassword)
		require.NoError(t, err, r)
		info, err := domainauth.InspectCredential(cred)
		require.NoError(t, err)
		assert.Equal(t, r, info.Role)
		assert.Equal(t, "dev-"+string(r), info.Subject)

		user, err := g.Validate(ctx, cred)
		require.NoError(t, err)
		assert.Equal(t, r, user.Role)
	}
}

func TestGateway_LoginFailures(t *testing.T) {
	g := newTestGateway(t, nil)
	ctx := context.Background()

	_, err := g.Login(ctx, "doctor@test.com", "wrong")
	assert.Equal(t, domainauth.KindInvalidCredentials, domainauth.KindOf(err))

	_, err = g.Login(ctx, "nobody@test.com", DefaultPassword)
	assert.Equal(t, domainauth.KindInvalidCredentials, domainauth.KindOf(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = g.Login(cancelled, "doctor@test.com", DefaultPassword)
	assert.Equal(t, domainauth.KindServerUnreachable, domainauth.KindOf(err))
}

func TestGateway_TokensExpireAndRevoke(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	g := newTestGateway(t, func() time.Time { return now })
	ctx := context.Background()

	cred, err := g.Login(ctx, "NURSE@test.com", DefaultPassword)
	require.NoError(t, err)

	now = now.Add(9 * time.Hour)
	_, err = g.Validate(ctx, cred)
	assert.Equal(t, domainauth.KindUnauthorized, domainauth.KindOf(err))

	now = now.Add(-9 * time.Hour)
	cred, err = g.Login(ctx, "nurse@test.com", DefaultPassword)
	require.NoError(t, err)
	g.Revoke(cred)
	_, err = g.Validate(ctx, cred)
	assert.Equal(t, domainauth.KindUnauthorized, domainauth.KindOf(err))
}

func TestGateway_RejectsForeignTokens(t *testing.T) {
	a := newTestGateway(t, nil)
	b := newTestGateway(t, nil)
	ctx := context.Background()

	cred, err := a.Login(ctx, "patient@test.com", DefaultPassword)
	require.NoError(t, err)
	_, err = b.Validate(ctx, cred)
	assert.Equal(t, domainauth.KindUnauthorized, domainauth.KindOf(err), "signed with another key")

	_, err = a.Validate(ctx, "not-a-jwt")
	assert.Equal(t, domainauth.KindUnauthorized, domainauth.KindOf(err))
}

func TestGateway_Register(t *testing.T) {
	g, err := NewGateway(Config{Cost: bcrypt.MinCost})
	require.NoError(t, err)
	ctx := context.Background()

	reg := domainauth.Registration{Email: "new@test.com", Password: "secret1", Name: "New", Role: domainauth.RolePatient}
	user, err := g.Register(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RolePatient, user.Role)
	assert.NotEmpty(t, user.ID)

	_, err = g.Register(ctx, reg)
	assert.Equal(t, domainauth.KindInvalidInput, domainauth.KindOf(err))

	reg.Email, reg.Role = "other@test.com", "janitor"
	_, err = g.Register(ctx, reg)
	assert.Equal(t, domainauth.KindInvalidInput, domainauth.KindOf(err))

	cred, err := g.Login(ctx, "new@test.com", "secret1")
	require.NoError(t, err)
	got, err := g.Validate(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}
