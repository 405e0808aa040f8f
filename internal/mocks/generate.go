// Package mocks provides gomock implementations of the session ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The hand-written doubles in internal/mocks/auth cover the common cases; use these when a
// test needs to assert call order or argument values.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	gw := mocks.NewMockIdentityGateway(ctrl)
//	gw.EXPECT().Login(gomock.Any(), "a@b.c", "secret").Return(domainauth.Credential("tok"), nil)
package mocks

// Generate mock for IdentityGateway interface from internal/ports package.
// This creates MockIdentityGateway with methods: Login, Validate, Register
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_gateway_mock.go github.com/target/medsurge/internal/ports IdentityGateway

// Generate mock for CredentialStore interface from internal/ports package.
// This creates MockCredentialStore with methods: Get, Set, Clear
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/target/medsurge/internal/ports CredentialStore
