package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
	_ ports.IdentityGateway = (*MockIdentityGateway)(nil)
	_ ports.RoleMapper      = (*StaticRoleMapper)(nil)
)

// MemoryCredentialStore is an in-memory credential store for unit tests.
// GetErr/SetErr/ClearErr inject failures.
type MemoryCredentialStore struct {
	mu         sync.Mutex
	credential domainauth.Credential

	GetErr   error
	SetErr   error
	ClearErr error

	sets   int
	clears int
}

// NewMemoryCredentialStore creates a store pre-loaded with cred (may be empty).
func NewMemoryCredentialStore(cred domainauth.Credential) *MemoryCredentialStore {
	return &MemoryCredentialStore{credential: cred}
}

func (m *MemoryCredentialStore) Get(_ context.Context) (domainauth.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	return m.credential, nil
}

func (m *MemoryCredentialStore) Set(_ context.Context, cred domainauth.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.SetErr != nil {
		return m.SetErr
	}
	m.credential = cred
	return nil
}

func (m *MemoryCredentialStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.credential = ""
	return nil
}

// Current returns the stored credential without going through Get.
func (m *MemoryCredentialStore) Current() domainauth.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential
}

// Replace swaps the stored credential as if another process had written it.
func (m *MemoryCredentialStore) Replace(cred domainauth.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = cred
}

// Clears returns how many times Clear was called.
func (m *MemoryCredentialStore) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// MockIdentityGateway simulates an identity service. Unset funcs fall back to
// a single fixed account: DefaultEmail / DefaultPassword -> DefaultCredential -> DefaultUser.
type MockIdentityGateway struct {
	LoginFunc    func(ctx context.Context, email, password string) (domainauth.Credential, error)
	ValidateFunc func(ctx context.Context, cred domainauth.Credential) (domainauth.User, error)
	RegisterFunc func(ctx context.Context, reg domainauth.Registration) (domainauth.User, error)

	DefaultEmail      string
	DefaultPassword   string
	DefaultCredential domainauth.Credential
	DefaultUser       domainauth.User

	mu    sync.Mutex
	calls map[string]int
}

// NewMockIdentityGateway creates a MockIdentityGateway with sensible defaults.
func NewMockIdentityGateway() *MockIdentityGateway {
	return &MockIdentityGateway{
		DefaultEmail:      "doctor@test.com",
		DefaultPassword:   "password",
		DefaultCredential: "mock-token-1",
		DefaultUser: domainauth.User{
			ID:    "mock-user-1",
			Name:  "Mock Doctor",
			Email: "doctor@test.com",
			Role:  domainauth.RoleDoctor,
		},
	}
}

func (m *MockIdentityGateway) Login(ctx context.Context, email, password string) (domainauth.Credential, error) {
	m.record("login")
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	if email != m.DefaultEmail || password != m.DefaultPassword {
		return "", domainauth.InvalidCredentials("")
	}
	return m.DefaultCredential, nil
}

func (m *MockIdentityGateway) Validate(ctx context.Context, cred domainauth.Credential) (domainauth.User, error) {
	m.record("validate")
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, cred)
	}
	if cred != m.DefaultCredential {
		return domainauth.User{}, domainauth.Unauthorized("")
	}
	return m.DefaultUser.Clone(), nil
}

func (m *MockIdentityGateway) Register(ctx context.Context, reg domainauth.Registration) (domainauth.User, error) {
	m.record("register")
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, reg)
	}
	return domainauth.User{ID: "mock-user-new", Name: reg.Name, Email: reg.Email, Role: reg.Role}, nil
}

// Calls returns how many times op ("login", "validate", "register") was invoked.
func (m *MockIdentityGateway) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockIdentityGateway) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// StaticRoleMapper maps a group to a role by exact match. First matching group wins.
type StaticRoleMapper struct {
	Groups map[string]domainauth.Role
}

func (m StaticRoleMapper) Map(groups []string) (domainauth.Role, bool) {
	for _, g := range groups {
		if r, ok := m.Groups[g]; ok {
			return r, true
		}
	}
	return "", false
}
