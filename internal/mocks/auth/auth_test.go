package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

func TestMemoryCredentialStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore("")

	cred, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, cred.IsZero())

	require.NoError(t, store.Set(ctx, "tok"))
	cred, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.Credential("tok"), cred)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	assert.True(t, store.Current().IsZero())
	assert.Equal(t, 2, store.Clears())
}

func TestMemoryCredentialStore_InjectedErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	store := NewMemoryCredentialStore("keep")
	store.SetErr = boom
	store.ClearErr = boom

	require.ErrorIs(t, store.Set(ctx, "new"), boom)
	require.ErrorIs(t, store.Clear(ctx), boom)
	assert.Equal(t, domainauth.Credential("keep"), store.Current())
}

func TestMockIdentityGateway_Defaults(t *testing.T) {
	ctx := context.Background()
	gw := NewMockIdentityGateway()

	cred, err := gw.Login(ctx, "doctor@test.com", "password")
	require.NoError(t, err)

	user, err := gw.Validate(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleDoctor, user.Role)

	_, err = gw.Login(ctx, "doctor@test.com", "wrong")
	assert.Equal(t, domainauth.KindInvalidCredentials, domainauth.KindOf(err))

	_, err = gw.Validate(ctx, "other")
	assert.Equal(t, domainauth.KindUnauthorized, domainauth.KindOf(err))

	assert.Equal(t, 2, gw.Calls("login"))
	assert.Equal(t, 2, gw.Calls("validate"))
}

func TestMockIdentityGateway_CustomFunc(t *testing.T) {
	gw := &MockIdentityGateway{
		ValidateFunc: func(context.Context, domainauth.Credential) (domainauth.User, error) {
			return domainauth.User{}, domainauth.ServerUnreachable(errors.New("dial tcp"))
		},
	}
	_, err := gw.Validate(context.Background(), "x")
	assert.Equal(t, domainauth.KindServerUnreachable, domainauth.KindOf(err))
}

func TestStaticRoleMapper(t *testing.T) {
	m := StaticRoleMapper{Groups: map[string]domainauth.Role{"ward-nurses": domainauth.RoleNurse}}

	r, ok := m.Map([]string{"everyone", "ward-nurses"})
	assert.True(t, ok)
	assert.Equal(t, domainauth.RoleNurse, r)

	_, ok = m.Map([]string{"everyone"})
	assert.False(t, ok)
}
