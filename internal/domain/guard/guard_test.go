package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

func signedIn(role domainauth.Role) domainauth.Session {
	return domainauth.AuthenticatedSession(domainauth.User{ID: "u1", Role: role})
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	mgmtOnly := Region{Name: "mgmt", Prefix: "/management", Allow: []domainauth.Role{domainauth.RoleManagement}}
	clinical := Region{Name: "clinical", Prefix: "/clinical", Allow: []domainauth.Role{"doctor", "nurse"}}
	open := Region{Name: "any", Prefix: "/any"}

	tests := map[string]struct {
		session domainauth.Session
		region  Region
		want    Decision
	}{
		"wrong role is unauthorized": {
			session: signedIn(domainauth.RoleDoctor),
			region:  mgmtOnly,
			want:    Decision{Outcome: OutcomeDeniedUnauthorized, Redirect: DefaultUnauthorizedPath},
		},
		"listed role is allowed": {
			session: signedIn(domainauth.RoleDoctor),
			region:  clinical,
			want:    Decision{Outcome: OutcomeAllowed},
		},
		"signed out with empty allow-list": {
			session: domainauth.UnauthenticatedSession(),
			region:  open,
			want:    Decision{Outcome: OutcomeDeniedUnauthenticated, Redirect: DefaultLoginPath, From: "/x"},
		},
		"signed out is unauthenticated, not unauthorized": {
			session: domainauth.UnauthenticatedSession(),
			region:  mgmtOnly,
			want:    Decision{Outcome: OutcomeDeniedUnauthenticated, Redirect: DefaultLoginPath, From: "/x"},
		},
		"loading never decides": {
			session: domainauth.NewSession(),
			region:  mgmtOnly,
			want:    Decision{Outcome: OutcomeChecking},
		},
		"empty allow-list admits any role": {
			session: signedIn(domainauth.RolePatient),
			region:  open,
			want:    Decision{Outcome: OutcomeAllowed},
		},
		"authenticated flag without user": {
			session: domainauth.Session{IsAuthenticated: true, Phase: domainauth.PhaseAuthenticated},
			region:  open,
			want:    Decision{Outcome: OutcomeDeniedUnauthenticated, Redirect: DefaultLoginPath, From: "/x"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Evaluate(tt.session, tt.region, "/x"))
		})
	}
}

func TestEvaluate_NeverAllowsSignedOut(t *testing.T) {
	s := domainauth.UnauthenticatedSession()
	regions := []Region{{}, {Allow: domainauth.AllRoles()}}
	for _, r := range domainauth.AllRoles() {
		regions = append(regions, Region{Allow: []domainauth.Role{r}})
	}
	for _, region := range regions {
		assert.NotEqual(t, OutcomeAllowed, Evaluate(s, region, "/").Outcome)
	}
}

func TestRegion_AdmitsIsCaseInsensitive(t *testing.T) {
	r := Region{Allow: []domainauth.Role{"Doctor"}}
	assert.True(t, r.Admits(domainauth.RoleDoctor))
	assert.False(t, r.Admits(""))
}

func TestGuard_CustomPathsAndLoginURL(t *testing.T) {
	g := New(Options{LoginPath: "/signin", UnauthorizedPath: "/denied"})

	d := g.Evaluate(domainauth.UnauthenticatedSession(), Region{}, "/doctor/patients")
	assert.Equal(t, "/signin", d.Redirect)
	d = g.Evaluate(signedIn(domainauth.RoleNurse), Region{Allow: []domainauth.Role{domainauth.RoleDoctor}}, "/")
	assert.Equal(t, "/denied", d.Redirect)

	assert.Equal(t, "/signin?redirect_uri=%2Fdoctor%2Fpatients%3Ftab%3D1", g.LoginURL("/doctor/patients?tab=1"))
	assert.Equal(t, "/signin", g.LoginURL(""))
}

type fakeSource struct {
	mu      sync.Mutex
	current domainauth.Session
	ch      chan domainauth.Session
}

func newFakeSource(s domainauth.Session) *fakeSource {
	return &fakeSource{current: s, ch: make(chan domainauth.Session, 1)}
}

func (f *fakeSource) Snapshot() domainauth.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeSource) Watch() (func(), <-chan domainauth.Session) { return func() {}, f.ch }

func (f *fakeSource) publish(s domainauth.Session) {
	f.mu.Lock()
	f.current = s
	f.mu.Unlock()
	f.ch <- s
}

func TestResolve_WaitsForLoadingToSettle(t *testing.T) {
	src := newFakeSource(domainauth.NewSession())
	region := Region{Allow: []domainauth.Role{domainauth.RoleDoctor}}

	go func() {
		time.Sleep(10 * time.Millisecond)
		src.publish(signedIn(domainauth.RoleDoctor))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d, err := Default.Resolve(ctx, src, region, "/doctor")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllowed, d.Outcome)
}

func TestResolve_ContextAndClose(t *testing.T) {
	src := newFakeSource(domainauth.NewSession())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := Default.Resolve(ctx, src, Region{}, "/")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeChecking, d.Outcome)

	close(src.ch)
	_, err = Default.Resolve(context.Background(), src, Region{}, "/")
	require.ErrorIs(t, err, ErrSourceClosed)
}

func TestResolve_SettledSessionReturnsImmediately(t *testing.T) {
	src := newFakeSource(domainauth.UnauthenticatedSession())
	d, err := Default.Resolve(context.Background(), src, Region{}, "/patient")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeniedUnauthenticated, d.Outcome)
	assert.Equal(t, "/patient", d.From)
}
