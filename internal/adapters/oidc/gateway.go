package oidc

// Package oidc provides an IdentityGateway backed by an OpenID Connect provider.
// Login uses the resource-owner password grant; Validate calls UserInfo with the
// access token, so the token stays opaque to the console.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/ports"
	"golang.org/x/oauth2"
)

// GatewayConfig holds configuration for the OIDC gateway.
type GatewayConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	// RoleClaim names the claim carrying the application role. Default "role".
	RoleClaim  string
	RoleMapper ports.RoleMapper // optional; used when the role claim is absent
	HTTPClient *http.Client     // Optional, defaults to a 30s-timeout client
}

// Gateway implements ports.IdentityGateway over OIDC.
type Gateway struct {
	config     *oauth2.Config
	provider   *gooidc.Provider
	httpClient *http.Client
	roleClaim  string
	mapper     ports.RoleMapper
}

var _ ports.IdentityGateway = (*Gateway)(nil)

// DiscoveryDocument represents the subset of the OIDC discovery document we read.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewGateway performs discovery and returns a ready gateway.
func NewGateway(ctx context.Context, cfg GatewayConfig) (*Gateway, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scopes := strings.Fields(cfg.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}
	roleClaim := cfg.RoleClaim
	if roleClaim == "" {
		roleClaim = "role"
	}

	return &Gateway{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		provider:   op,
		httpClient: httpClient,
		roleClaim:  roleClaim,
		mapper:     cfg.RoleMapper,
	}, nil
}

func (g *Gateway) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}

// Login exchanges email/password for an access token.
func (g *Gateway) Login(ctx context.Context, email, password string) (domainauth.Credential, error) {
	tok, err := g.config.PasswordCredentialsToken(g.clientContext(ctx), email, password)
	if err != nil {
		return "", classifyTokenError(err)
	}
	if tok.AccessToken == "" {
		return "", domainauth.MalformedResponse("token response has no access_token", nil)
	}
	return domainauth.Credential(tok.AccessToken), nil
}

// Validate resolves the user through the UserInfo endpoint.
func (g *Gateway) Validate(ctx context.Context, c domainauth.Credential) (domainauth.User, error) {
	if c.IsZero() {
		return domainauth.User{}, domainauth.Unauthorized("")
	}
	ui, err := g.provider.UserInfo(g.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(c)}))
	if err != nil {
		return domainauth.User{}, classifyUserInfoError(err)
	}

	var raw map[string]any
	if err := ui.Claims(&raw); err != nil {
		return domainauth.User{}, domainauth.MalformedResponse("decode user info", err)
	}
	var claims userClaims
	if err := ui.Claims(&claims); err != nil {
		return domainauth.User{}, domainauth.MalformedResponse("decode user info", err)
	}
	roleValue, _ := raw[g.roleClaim].(string)
	return g.mapUser(claims, roleValue)
}

// Register is not offered by OIDC providers through this flow.
func (g *Gateway) Register(context.Context, domainauth.Registration) (domainauth.User, error) {
	return domainauth.User{}, domainauth.Unsupported("Registration is managed by your identity provider.")
}

// userClaims is a superset of standard OIDC and AD/ADFS claim shapes.
type userClaims struct {
	Sub            string   `json:"sub"`
	SamAccountName string   `json:"samaccountname"`
	Name           string   `json:"name"`
	GivenName      string   `json:"given_name"`
	FamilyName     string   `json:"family_name"`
	Email          string   `json:"email"`
	Mail           string   `json:"mail"`
	Roles          []string `json:"roles"`
	Groups         []string `json:"groups"`
	MemberOf       []string `json:"memberof"`
}

func (g *Gateway) mapUser(c userClaims, roleValue string) (domainauth.User, error) {
	u := domainauth.User{
		ID:    firstNonEmpty(c.Sub, c.SamAccountName),
		Email: firstNonEmpty(c.Email, c.Mail),
		Name:  firstNonEmpty(c.Name, strings.TrimSpace(c.GivenName+" "+c.FamilyName)),
	}
	if u.ID == "" {
		return domainauth.User{}, domainauth.MalformedResponse("user info has no subject", nil)
	}

	if r, ok := domainauth.ParseRole(roleValue); ok {
		u.Role = r
	} else if g.mapper != nil {
		groups := c.Groups
		if len(groups) == 0 {
			groups = c.MemberOf
		}
		if r, ok := g.mapper.Map(groups); ok {
			u.Role = r
		}
	}
	if u.Role == "" {
		return domainauth.User{}, domainauth.MalformedResponse("user has no role for this application", nil)
	}

	for _, raw := range c.Roles {
		if r, ok := domainauth.ParseRole(raw); ok {
			u.Roles = append(u.Roles, r)
		}
	}
	return u, nil
}

func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return domainauth.Classify(err)
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	switch {
	case status >= 500:
		return domainauth.ServerUnreachable(err)
	case status >= 400 || re.ErrorCode == "invalid_grant":
		msg := re.ErrorDescription
		if msg == "" && re.ErrorCode == "invalid_grant" {
			msg = "Incorrect email or password"
		}
		return domainauth.InvalidCredentials(msg)
	default:
		return domainauth.MalformedResponse("unexpected token response", err)
	}
}

// go-oidc reports UserInfo failures as "<status>: <body>".
func classifyUserInfoError(err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "401"), strings.HasPrefix(msg, "403"):
		return domainauth.Unauthorized("")
	case strings.HasPrefix(msg, "5"):
		return domainauth.ServerUnreachable(err)
	case strings.HasPrefix(msg, "4"):
		return domainauth.Unauthorized("")
	}
	return domainauth.Classify(err)
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
