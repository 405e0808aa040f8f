// Package identityhttp implements the identity gateway against the REST
// identity service: form login, bearer validation and JSON registration.
package identityhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/ports"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
)

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

// Config configures the HTTP gateway.
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:3001/api.
	BaseURL string
	Timeout time.Duration // default 15s
	// CredentialExpr locates the token in a login response. Default "access_token".
	CredentialExpr string
	// MessageExprs locate a human-readable message in error bodies, tried in order.
	MessageExprs []string
	HTTPClient   *http.Client // optional; must not carry the invalidation transport
}

// DefaultMessageExprs covers {"detail": "..."}, {"message": "..."} and
// validation lists of the form {"detail": [{"msg": "..."}]}.
var DefaultMessageExprs = []string{"detail", "message", "detail[0].msg", "error_description"}

// Gateway implements ports.IdentityGateway over HTTP.
type Gateway struct {
	base       *url.URL
	client     *http.Client
	credential jmespath.JMESPath
	messages   []jmespath.JMESPath
}

var _ ports.IdentityGateway = (*Gateway)(nil)

// New validates cfg and returns a Gateway.
func New(cfg Config) (*Gateway, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("identity base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse identity base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("identity base URL must be http(s): %q", cfg.BaseURL)
	}

	credExpr := cfg.CredentialExpr
	if credExpr == "" {
		credExpr = "access_token"
	}
	credential, err := jmespath.Compile(credExpr)
	if err != nil {
		return nil, fmt.Errorf("compile credential expression %q: %w", credExpr, err)
	}

	exprs := cfg.MessageExprs
	if len(exprs) == 0 {
		exprs = DefaultMessageExprs
	}
	messages := make([]jmespath.JMESPath, 0, len(exprs))
	for _, e := range exprs {
		compiled, cerr := jmespath.Compile(e)
		if cerr != nil {
			return nil, fmt.Errorf("compile message expression %q: %w", e, cerr)
		}
		messages = append(messages, compiled)
	}

	client := cfg.HTTPClient
	if client == nil {
		client, err = NewHTTPClient(cfg.Timeout)
		if err != nil {
			return nil, err
		}
	}

	return &Gateway{base: base, client: client, credential: credential, messages: messages}, nil
}

// NewHTTPClient builds the gateway's client. The cookie jar keeps any
// session cookie the identity service sets alongside the token.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &http.Client{Timeout: timeout, Jar: jar}, nil
}

// Login posts form-encoded credentials to /auth/login.
func (g *Gateway) Login(ctx context.Context, email, password string) (domainauth.Credential, error) {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := g.newRequest(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := g.do(req)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		data, derr := decodeJSON(body)
		if derr != nil {
			return "", domainauth.MalformedResponse("login response is not JSON", derr)
		}
		tok, _ := g.credential.Search(data)
		s, _ := tok.(string)
		if strings.TrimSpace(s) == "" {
			return "", domainauth.MalformedResponse("login response has no credential", nil)
		}
		return domainauth.Credential(s), nil
	case status >= 500:
		return "", domainauth.ServerUnreachable(fmt.Errorf("login: status %d", status))
	case status == http.StatusBadRequest, status == http.StatusUnauthorized,
		status == http.StatusForbidden, status == http.StatusUnprocessableEntity:
		return "", domainauth.InvalidCredentials(g.message(body))
	default:
		return "", domainauth.MalformedResponse(fmt.Sprintf("login: unexpected status %d", status), nil)
	}
}

// Validate fetches the user behind c from /auth/validate.
func (g *Gateway) Validate(ctx context.Context, c domainauth.Credential) (domainauth.User, error) {
	if c.IsZero() {
		return domainauth.User{}, domainauth.Unauthorized("")
	}
	req, err := g.newRequest(ctx, http.MethodGet, "/auth/validate", nil)
	if err != nil {
		return domainauth.User{}, err
	}
	(&oauth2.Token{AccessToken: string(c), TokenType: "Bearer"}).SetAuthHeader(req)

	status, body, err := g.do(req)
	if err != nil {
		return domainauth.User{}, err
	}
	switch {
	case status == http.StatusOK:
		return decodeUser(body)
	case status >= 500:
		return domainauth.User{}, domainauth.ServerUnreachable(fmt.Errorf("validate: status %d", status))
	case status >= 400:
		return domainauth.User{}, domainauth.Unauthorized(g.message(body))
	default:
		return domainauth.User{}, domainauth.MalformedResponse(fmt.Sprintf("validate: unexpected status %d", status), nil)
	}
}

// registerBody is what goes on the wire; the confirmation field never does.
type registerBody struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Name     string         `json:"name"`
	Role     string         `json:"role"`
	Profile  map[string]any `json:"profile,omitempty"`
}

// Register posts the registration as JSON to /auth/register.
func (g *Gateway) Register(ctx context.Context, reg domainauth.Registration) (domainauth.User, error) {
	payload, err := json.Marshal(registerBody{
		Email:    reg.Email,
		Password: reg.Password,
		Name:     reg.Name,
		Role:     string(reg.Role),
		Profile:  reg.Profile,
	})
	if err != nil {
		return domainauth.User{}, domainauth.InvalidInput(err.Error())
	}
	req, err := g.newRequest(ctx, http.MethodPost, "/auth/register", bytes.NewReader(payload))
	if err != nil {
		return domainauth.User{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := g.do(req)
	if err != nil {
		return domainauth.User{}, err
	}
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		user, derr := decodeUser(body)
		if derr != nil {
			// Some backends answer with a bare acknowledgement.
			return domainauth.User{Email: reg.Email, Name: reg.Name, Role: reg.Role}, nil
		}
		return user, nil
	case status >= 500:
		return domainauth.User{}, domainauth.ServerUnreachable(fmt.Errorf("register: status %d", status))
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return domainauth.User{}, domainauth.InvalidInput(g.message(body))
	default:
		return domainauth.User{}, domainauth.MalformedResponse(fmt.Sprintf("register: unexpected status %d", status), nil)
	}
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *g.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, domainauth.MalformedResponse("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (g *Gateway) do(req *http.Request) (int, []byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, domainauth.ServerUnreachable(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, domainauth.ServerUnreachable(err)
	}
	return resp.StatusCode, body, nil
}

// message returns the first string the message expressions find in body.
func (g *Gateway) message(body []byte) string {
	data, err := decodeJSON(body)
	if err != nil {
		return ""
	}
	for _, expr := range g.messages {
		v, serr := expr.Search(data)
		if serr != nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func decodeJSON(body []byte) (any, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// wireUser accepts both "id" and Mongo-style "_id".
type wireUser struct {
	ID       string   `json:"id"`
	MongoID  string   `json:"_id"`
	Name     string   `json:"name"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     string   `json:"role"`
	Roles    []string `json:"roles"`
}

func decodeUser(body []byte) (domainauth.User, error) {
	var w wireUser
	if err := json.Unmarshal(body, &w); err != nil {
		return domainauth.User{}, domainauth.MalformedResponse("user body is not JSON", err)
	}
	id := w.ID
	if id == "" {
		id = w.MongoID
	}
	if id == "" && w.Email == "" {
		return domainauth.User{}, domainauth.MalformedResponse("user body has no id", nil)
	}
	role, ok := domainauth.ParseRole(w.Role)
	if !ok {
		return domainauth.User{}, domainauth.MalformedResponse(fmt.Sprintf("unknown role %q", w.Role), nil)
	}
	u := domainauth.User{ID: id, Name: w.Name, Email: w.Email, Role: role}
	if u.Name == "" {
		u.Name = w.FullName
	}
	// Roles is kept as the server sent it; names outside the closed set are dropped.
	for _, raw := range w.Roles {
		if r, ok := domainauth.ParseRole(raw); ok {
			u.Roles = append(u.Roles, r)
		}
	}
	return u, nil
}
