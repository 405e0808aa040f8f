package authroles

import (
	"fmt"
	"strings"

	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// StaticRoleMapper maps provider groups to application roles by exact,
// case-insensitive match. Groups are checked in the order the provider lists
// them and the first mapped group wins.
type StaticRoleMapper struct {
	groups map[string]domainauth.Role
}

// NewStaticRoleMapper builds a mapper from group -> role pairs.
func NewStaticRoleMapper(groups map[string]domainauth.Role) (*StaticRoleMapper, error) {
	m := &StaticRoleMapper{groups: make(map[string]domainauth.Role, len(groups))}
	for g, r := range groups {
		role, ok := domainauth.ParseRole(string(r))
		if !ok {
			return nil, fmt.Errorf("group %q: unknown role %q", g, r)
		}
		m.groups[strings.ToLower(strings.TrimSpace(g))] = role
	}
	return m, nil
}

// ParseGroupRoles parses "group=role" pairs as they arrive from env config.
func ParseGroupRoles(pairs map[string]string) (map[string]domainauth.Role, error) {
	out := make(map[string]domainauth.Role, len(pairs))
	for g, r := range pairs {
		if strings.TrimSpace(g) == "" {
			return nil, fmt.Errorf("empty group name for role %q", r)
		}
		out[g] = domainauth.Role(r)
	}
	return out, nil
}

func (m *StaticRoleMapper) Map(groups []string) (domainauth.Role, bool) {
	for _, g := range groups {
		if r, ok := m.groups[strings.ToLower(strings.TrimSpace(g))]; ok {
			return r, true
		}
	}
	return "", false
}
