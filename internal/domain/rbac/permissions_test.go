package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

func TestPermissionsFor_EveryRoleHasPermissions(t *testing.T) {
	for _, r := range domainauth.AllRoles() {
		perms := PermissionsFor(r)
		assert.NotEmpty(t, perms, r)
		assert.Equal(t, perms, PermissionsFor(r), "must be deterministic for %s", r)
	}
}

func TestPermissionsFor_FailsClosed(t *testing.T) {
	assert.Empty(t, PermissionsFor(""))
	assert.Empty(t, PermissionsFor("janitor"))
	assert.NotNil(t, PermissionsFor(""))
}

func TestPermissionsFor_ReturnsCopy(t *testing.T) {
	perms := PermissionsFor(domainauth.RoleDoctor)
	perms[0] = "tampered"
	assert.Equal(t, PermViewPatients, PermissionsFor(domainauth.RoleDoctor)[0])
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(domainauth.RoleManagement, PermManageStaff))
	assert.True(t, HasPermission(domainauth.RolePatient, PermViewReports))
	assert.False(t, HasPermission(domainauth.RoleNurse, PermManageStaff))
	assert.False(t, HasPermission(domainauth.RoleNurse, ""))
	assert.False(t, HasPermission("", PermViewPatients))
}

func TestSwitchRole(t *testing.T) {
	user := &domainauth.User{Role: domainauth.RoleDoctor, Roles: []domainauth.Role{domainauth.RoleNurse}}

	assert.Equal(t, domainauth.RoleNurse, SwitchRole(user, domainauth.RoleDoctor, domainauth.RoleNurse))
	assert.Equal(t, domainauth.RoleDoctor, SwitchRole(user, domainauth.RoleDoctor, domainauth.RoleManagement))
	assert.Equal(t, domainauth.RoleDoctor, SwitchRole(user, domainauth.RoleDoctor, "bogus"))
	assert.Equal(t, domainauth.RoleDoctor, SwitchRole(nil, domainauth.RoleDoctor, domainauth.RoleNurse))

	// The primary role stays reachable after switching away from it.
	assert.Equal(t, domainauth.RoleDoctor, SwitchRole(user, domainauth.RoleNurse, domainauth.RoleDoctor))

	listed := &domainauth.User{Role: domainauth.RoleDoctor, Roles: []domainauth.Role{domainauth.RoleDoctor, domainauth.RoleNurse}}
	active := SwitchRole(listed, domainauth.RoleDoctor, domainauth.RoleNurse)
	assert.Equal(t, domainauth.RoleNurse, active)
	assert.Equal(t, domainauth.RoleDoctor, SwitchRole(listed, active, domainauth.RoleDoctor))
}

func TestRolesWith(t *testing.T) {
	assert.Equal(t, []domainauth.Role{domainauth.RoleDoctor, domainauth.RoleNurse}, RolesWith(PermViewPatients))
	assert.Equal(t, []domainauth.Role{domainauth.RoleManagement, domainauth.RolePatient}, RolesWith(PermViewReports))
	assert.Empty(t, RolesWith("nothing"))
}
