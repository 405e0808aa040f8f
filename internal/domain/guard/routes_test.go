package guard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

func TestDefaultRouteTable(t *testing.T) {
	table := DefaultRouteTable()
	require.Len(t, table.Regions(), len(domainauth.AllRoles()))

	r, ok := table.Match("/doctor/patients")
	require.True(t, ok)
	assert.Equal(t, []domainauth.Role{domainauth.RoleDoctor}, r.Allow)

	_, ok = table.Match("/doctorate")
	assert.False(t, ok, "prefix must end on a segment boundary")
	_, ok = table.Match("/login")
	assert.False(t, ok)
}

func TestNewRouteTable_LongestPrefixWins(t *testing.T) {
	table, err := NewRouteTable([]Region{
		{Prefix: "/ward", Allow: []domainauth.Role{"nurse", "doctor"}},
		{Prefix: "/ward/pharmacy/", Allow: []domainauth.Role{"INVENTORY"}},
	})
	require.NoError(t, err)

	r, ok := table.Match("/ward/pharmacy/orders")
	require.True(t, ok)
	assert.Equal(t, "ward/pharmacy", r.Name)
	assert.Equal(t, []domainauth.Role{domainauth.RoleInventory}, r.Allow)

	r, ok = table.Match("/ward")
	require.True(t, ok)
	assert.Equal(t, "/ward", r.Prefix)
}

func TestNewRouteTable_Rejects(t *testing.T) {
	tests := map[string][]Region{
		"root prefix":  {{Prefix: "/"}},
		"duplicate":    {{Prefix: "/a"}, {Prefix: "a/"}},
		"unknown role": {{Prefix: "/a", Allow: []domainauth.Role{"janitor"}}},
	}
	for name, regions := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRouteTable(regions)
			require.Error(t, err)
		})
	}
}

func TestLoadRouteTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[regions]]
name = "clinical"
prefix = "/clinical"
allow = ["doctor", "nurse"]

[[regions]]
prefix = "/er"
allow = ["emergency"]
`), 0o600))

	table, err := LoadRouteTable(path)
	require.NoError(t, err)

	r, ok := table.Match("/clinical/rounds")
	require.True(t, ok)
	assert.Equal(t, "clinical", r.Name)
	assert.True(t, r.Admits(domainauth.RoleNurse))

	_, err = LoadRouteTable(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestParseRouteTable_Errors(t *testing.T) {
	_, err := ParseRouteTable("")
	require.ErrorIs(t, err, ErrNoRegions)

	_, err = ParseRouteTable("[[regions]\nprefix=")
	require.Error(t, err)
}
