package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	mockauth "github.com/target/medsurge/internal/mocks/auth"
)

type fakeIdP struct {
	server   *httptest.Server
	userinfo map[string]any
	status   int
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:                idp.server.URL,
			AuthorizationEndpoint: idp.server.URL + "/auth",
			TokenEndpoint:         idp.server.URL + "/token",
			UserinfoEndpoint:      idp.server.URL + "/userinfo",
			JwksURI:               idp.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Form.Get("password") == "boom":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"temporarily_unavailable"}`))
		case r.Form.Get("grant_type") != "password" || r.Form.Get("password") != "password":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
		default:
			_, _ = w.Write([]byte(`{"access_token":"at-` + r.Form.Get("username") + `","token_type":"Bearer","expires_in":3600}`))
		}
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-doctor@test.com" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if idp.status != http.StatusOK {
			http.Error(w, "down", idp.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(idp.userinfo)
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func newTestGateway(t *testing.T, idp *fakeIdP, mapper *mockauth.StaticRoleMapper) *Gateway {
	t.Helper()
	cfg := GatewayConfig{
		ClientID:     "console",
		ClientSecret: "secret",
		DiscoveryURL: idp.server.URL + "/.well-known/openid-configuration",
	}
	if mapper != nil {
		cfg.RoleMapper = mapper
	}
	g, err := NewGateway(context.Background(), cfg)
	require.NoError(t, err)
	return g
}

func TestNewGateway_ValidationErrors(t *testing.T) {
	_, err := NewGateway(context.Background(), GatewayConfig{DiscoveryURL: "http://x"})
	require.ErrorContains(t, err, "client ID is required")
	_, err = NewGateway(context.Background(), GatewayConfig{ClientID: "c"})
	require.ErrorContains(t, err, "discovery URL is required")
}

func TestGateway_LoginAndValidate(t *testing.T) {
	idp := newFakeIdP(t)
	idp.userinfo = map[string]any{
		"sub":   "u-1",
		"name":  "Dana Doctor",
		"email": "doctor@test.com",
		"role":  "Doctor",
		"roles": []string{"doctor", "nurse", "janitor"},
	}
	g := newTestGateway(t, idp, nil)
	ctx := context.Background()

	cred, err := g.Login(ctx, "doctor@test.com", "password")
	require.NoError(t, err)
	assert.Equal(t, domainauth.Credential("at-doctor@test.com"), cred)

	user, err := g.Validate(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, domainauth.User{
		ID:    "u-1",
		Name:  "Dana Doctor",
		Email: "doctor@test.com",
		Role:  domainauth.RoleDoctor,
		Roles: []domainauth.Role{domainauth.RoleDoctor, domainauth.RoleNurse},
	}, user)
}

func TestGateway_LoginFailures(t *testing.T) {
	g := newTestGateway(t, newFakeIdP(t), nil)
	ctx := context.Background()

	_, err := g.Login(ctx, "doctor@test.com", "wrong")
	require.Equal(t, domainauth.KindInvalidCredentials, domainauth.KindOf(err))
	assert.Equal(t, "Invalid user credentials", domainauth.Classify(err).UserMessage())

	_, err = g.Login(ctx, "doctor@test.com", "boom")
	assert.Equal(t, domainauth.KindServerUnreachable, domainauth.KindOf(err))
}

func TestGateway_ValidateFailures(t *testing.T) {
	idp := newFakeIdP(t)
	idp.userinfo = map[string]any{"sub": "u-1"}
	g := newTestGateway(t, idp, nil)
	ctx := context.Background()

	_, err := g.Validate(ctx, "revoked")
	assert.Equal(t, domainauth.KindUnauthorized, domainauth.KindOf(err))

	_, err = g.Validate(ctx, "at-doctor@test.com")
	assert.Equal(t, domainauth.KindMalformedResponse, domainauth.KindOf(err), "no role")

	idp.status = http.StatusServiceUnavailable
	_, err = g.Validate(ctx, "at-doctor@test.com")
	assert.Equal(t, domainauth.KindServerUnreachable, domainauth.KindOf(err))
}

func TestGateway_RoleFromGroups(t *testing.T) {
	idp := newFakeIdP(t)
	idp.userinfo = map[string]any{
		"sub":      "u-2",
		"mail":     "er@test.com",
		"memberof": []string{"CN=APP-ER-Staff,OU=Groups"},
	}
	mapper := &mockauth.StaticRoleMapper{Groups: map[string]domainauth.Role{"CN=APP-ER-Staff,OU=Groups": domainauth.RoleEmergency}}
	g := newTestGateway(t, idp, mapper)

	user, err := g.Validate(context.Background(), "at-doctor@test.com")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleEmergency, user.Role)
	assert.Equal(t, "er@test.com", user.Email)
}

func TestGateway_RegisterUnsupported(t *testing.T) {
	g := newTestGateway(t, newFakeIdP(t), nil)
	_, err := g.Register(context.Background(), domainauth.Registration{})
	assert.Equal(t, domainauth.KindUnsupported, domainauth.KindOf(err))
}

func Test_firstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Empty(t, firstNonEmpty())
}
