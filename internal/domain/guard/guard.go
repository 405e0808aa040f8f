// Package guard decides whether a protected region may be shown for the
// current session. Authentication is always checked before authorization so a
// signed-out user never learns that a region exists but is off limits.
package guard

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"

	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// Outcome is the render decision for a protected region.
type Outcome string

const (
	// OutcomeChecking means the session is still loading; show a neutral placeholder.
	OutcomeChecking Outcome = "checking"
	// OutcomeDeniedUnauthenticated means nobody is signed in; redirect to login.
	OutcomeDeniedUnauthenticated Outcome = "denied_unauthenticated"
	// OutcomeDeniedUnauthorized means the signed-in role is not allowed; redirect to unauthorized.
	OutcomeDeniedUnauthorized Outcome = "denied_unauthorized"
	// OutcomeAllowed means the protected region may be rendered.
	OutcomeAllowed Outcome = "allowed"
)

const (
	DefaultLoginPath        = "/login"
	DefaultUnauthorizedPath = "/unauthorized"
)

// Region is a protected subtree tagged with an allow-list of roles.
// An empty Allow list admits any authenticated role.
type Region struct {
	Name   string            `toml:"name"`
	Prefix string            `toml:"prefix"`
	Allow  []domainauth.Role `toml:"allow"`
}

// Admits reports whether role is on the allow-list (case-insensitive).
func (r Region) Admits(role domainauth.Role) bool {
	if len(r.Allow) == 0 {
		return true
	}
	if role == "" {
		return false
	}
	return slices.ContainsFunc(r.Allow, func(a domainauth.Role) bool {
		return strings.EqualFold(string(a), string(role))
	})
}

// Decision is the result of evaluating a region.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	// Redirect is the target for denied outcomes.
	Redirect string `json:"redirect,omitempty"`
	// From is the originally requested location, carried on login redirects
	// so the caller can return the user there after signing in.
	From string `json:"from,omitempty"`
}

// Options configures redirect targets.
type Options struct {
	LoginPath        string
	UnauthorizedPath string
}

// Guard evaluates sessions against regions.
type Guard struct {
	loginPath        string
	unauthorizedPath string
}

// New constructs a Guard, defaulting empty paths.
func New(opts Options) *Guard {
	g := &Guard{loginPath: opts.LoginPath, unauthorizedPath: opts.UnauthorizedPath}
	if g.loginPath == "" {
		g.loginPath = DefaultLoginPath
	}
	if g.unauthorizedPath == "" {
		g.unauthorizedPath = DefaultUnauthorizedPath
	}
	return g
}

// Default is a Guard using the default redirect paths.
var Default = New(Options{})

// Evaluate is shorthand for Default.Evaluate.
func Evaluate(s domainauth.Session, region Region, location string) Decision {
	return Default.Evaluate(s, region, location)
}

// Evaluate returns the decision for showing region at location.
func (g *Guard) Evaluate(s domainauth.Session, region Region, location string) Decision {
	if s.Loading {
		return Decision{Outcome: OutcomeChecking}
	}
	if !s.IsAuthenticated || s.User == nil {
		return Decision{
			Outcome:  OutcomeDeniedUnauthenticated,
			Redirect: g.loginPath,
			From:     location,
		}
	}
	if !region.Admits(s.ActiveRole) {
		return Decision{Outcome: OutcomeDeniedUnauthorized, Redirect: g.unauthorizedPath}
	}
	return Decision{Outcome: OutcomeAllowed}
}

// LoginURL builds the login redirect including the return location.
func (g *Guard) LoginURL(from string) string {
	if from == "" {
		return g.loginPath
	}
	return g.loginPath + "?redirect_uri=" + url.QueryEscape(from)
}

// SessionSource is a read-only view of the session manager.
type SessionSource interface {
	Snapshot() domainauth.Session
	Watch() (func(), <-chan domainauth.Session)
}

// ErrSourceClosed is returned by Resolve when the session watcher closes while checking.
var ErrSourceClosed = errors.New("session source closed")

// Resolve waits until the session stops loading and returns the first firm decision.
func (g *Guard) Resolve(ctx context.Context, src SessionSource, region Region, location string) (Decision, error) {
	// Subscribe before reading the snapshot so no transition is missed.
	cancel, updates := src.Watch()
	defer cancel()

	d := g.Evaluate(src.Snapshot(), region, location)
	for d.Outcome == OutcomeChecking {
		select {
		case <-ctx.Done():
			return d, ctx.Err()
		case s, ok := <-updates:
			if !ok {
				return d, ErrSourceClosed
			}
			d = g.Evaluate(s, region, location)
		}
	}
	return d, nil
}
