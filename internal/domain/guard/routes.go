package guard

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// RouteTable maps path prefixes to protected regions. Paths outside every
// region are public.
type RouteTable struct {
	regions []Region
}

// NewRouteTable validates regions and orders them longest prefix first.
func NewRouteTable(regions []Region) (*RouteTable, error) {
	out := make([]Region, 0, len(regions))
	seen := make(map[string]bool, len(regions))
	for i, r := range regions {
		prefix := "/" + strings.Trim(strings.TrimSpace(r.Prefix), "/")
		if prefix == "/" {
			return nil, fmt.Errorf("region %d: prefix must not be the root", i)
		}
		if seen[prefix] {
			return nil, fmt.Errorf("region %d: duplicate prefix %q", i, prefix)
		}
		seen[prefix] = true

		allow := make([]domainauth.Role, 0, len(r.Allow))
		for _, raw := range r.Allow {
			role, ok := domainauth.ParseRole(string(raw))
			if !ok {
				return nil, fmt.Errorf("region %q: unknown role %q", prefix, raw)
			}
			allow = append(allow, role)
		}

		name := r.Name
		if name == "" {
			name = strings.TrimPrefix(prefix, "/")
		}
		out = append(out, Region{Name: name, Prefix: prefix, Allow: allow})
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Prefix) > len(out[j].Prefix) })
	return &RouteTable{regions: out}, nil
}

// DefaultRouteTable returns one region per role, each admitting only that role.
func DefaultRouteTable() *RouteTable {
	roles := domainauth.AllRoles()
	regions := make([]Region, 0, len(roles))
	for _, r := range roles {
		regions = append(regions, Region{
			Name:   string(r),
			Prefix: "/" + string(r),
			Allow:  []domainauth.Role{r},
		})
	}
	table, err := NewRouteTable(regions)
	if err != nil {
		panic(err) // static table; cannot fail
	}
	return table
}

// Match returns the region protecting path, if any.
func (t *RouteTable) Match(path string) (Region, bool) {
	if t == nil {
		return Region{}, false
	}
	for _, r := range t.regions {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns a copy of the configured regions.
func (t *RouteTable) Regions() []Region {
	if t == nil {
		return nil
	}
	out := make([]Region, len(t.regions))
	copy(out, t.regions)
	return out
}

type routeFile struct {
	Regions []Region `toml:"regions"`
}

// ErrNoRegions is returned when a routes file defines nothing.
var ErrNoRegions = errors.New("routes file defines no regions")

// LoadRouteTable reads a TOML routes file of the form:
//
//	[[regions]]
//	name = "doctor"
//	prefix = "/doctor"
//	allow = ["doctor"]
func LoadRouteTable(path string) (*RouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	return ParseRouteTable(string(data))
}

// ParseRouteTable parses TOML routes content.
func ParseRouteTable(data string) (*RouteTable, error) {
	var rf routeFile
	if _, err := toml.Decode(data, &rf); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	if len(rf.Regions) == 0 {
		return nil, ErrNoRegions
	}
	return NewRouteTable(rf.Regions)
}
