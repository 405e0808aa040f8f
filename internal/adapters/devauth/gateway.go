package devauth

// Package devauth provides an in-process IdentityGateway for local development.
// It seeds one account per role so every protected region can be exercised
// without a running identity service.

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password"

const issuer = "medsurge-dev"

// Config controls the dev gateway behavior.
type Config struct {
	// SeedAccounts creates <role>@test.com for every role.
	SeedAccounts bool
	// Password overrides DefaultPassword for seeded accounts.
	Password        string
	SessionDuration time.Duration // default 8h when zero
	// Cost is the bcrypt cost; defaults to bcrypt.DefaultCost.
	Cost int
	// SigningKey signs issued tokens (HS256). A random key is generated when empty,
	// which invalidates every token on restart.
	SigningKey []byte
	Now        func() time.Time
}

type account struct {
	user domainauth.User
	hash []byte
}

type tokenClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Gateway implements ports.IdentityGateway in memory.
type Gateway struct {
	mu       sync.Mutex
	accounts map[string]account
	revoked  map[string]struct{}
	key      []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
}

var _ ports.IdentityGateway = (*Gateway)(nil)

// NewGateway constructs a dev gateway from Config.
func NewGateway(cfg Config) (*Gateway, error) {
	g := &Gateway{
		accounts: make(map[string]account),
		revoked:  make(map[string]struct{}),
		key:      cfg.SigningKey,
		ttl:      cfg.SessionDuration,
		cost:     cfg.Cost,
		now:      cfg.Now,
	}
	if g.ttl == 0 {
		g.ttl = 8 * time.Hour
	}
	if g.cost == 0 {
		g.cost = bcrypt.DefaultCost
	}
	if g.now == nil {
		g.now = time.Now
	}
	if len(g.key) == 0 {
		g.key = make([]byte, 32)
		if _, err := rand.Read(g.key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	if !cfg.SeedAccounts {
		return g, nil
	}

	password := cfg.Password
	if password == "" {
		password = DefaultPassword
	}
	for _, r := range domainauth.AllRoles() {
		email := string(r) + "@test.com"
		name := strings.ToUpper(string(r[:1])) + string(r[1:]) + " User"
		if err := g.add(domainauth.User{ID: "dev-" + string(r), Name: name, Email: email, Role: r}, password); err != nil {
			return nil, fmt.Errorf("seed %s: %w", email, err)
		}
	}
	return g, nil
}

func (g *Gateway) add(u domainauth.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, exists := g.accounts[key]; exists {
		return domainauth.InvalidInput("Email already registered")
	}
	g.accounts[key] = account{user: u.Clone(), hash: hash}
	return nil
}

// Login checks the password and issues a signed, expiring token.
func (g *Gateway) Login(ctx context.Context, email, password string) (domainauth.Credential, error) {
	if err := ctx.Err(); err != nil {
		return "", domainauth.ServerUnreachable(err)
	}
	key := strings.ToLower(strings.TrimSpace(email))

	g.mu.Lock()
	acct, ok := g.accounts[key]
	g.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return "", domainauth.InvalidCredentials("Incorrect email or password")
	}

	now := g.now()
	claims := tokenClaims{
		Role:  string(acct.user.Role),
		Email: acct.user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acct.user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.key)
	if err != nil {
		return "", domainauth.MalformedResponse("sign token", err)
	}
	return domainauth.Credential(signed), nil
}

// Validate resolves an issued, unexpired token.
func (g *Gateway) Validate(ctx context.Context, c domainauth.Credential) (domainauth.User, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.User{}, domainauth.ServerUnreachable(err)
	}
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(string(c), &claims,
		func(*jwt.Token) (any, error) { return g.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domainauth.User{}, domainauth.Unauthorized("Token expired")
		}
		return domainauth.User{}, domainauth.Unauthorized("")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, gone := g.revoked[claims.ID]; gone {
		return domainauth.User{}, domainauth.Unauthorized("")
	}
	acct, ok := g.accounts[strings.ToLower(claims.Email)]
	if !ok || acct.user.ID != claims.Subject {
		return domainauth.User{}, domainauth.Unauthorized("")
	}
	return acct.user.Clone(), nil
}

// Register adds an account. It does not issue a token.
func (g *Gateway) Register(ctx context.Context, reg domainauth.Registration) (domainauth.User, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.User{}, domainauth.ServerUnreachable(err)
	}
	if !reg.Role.Valid() {
		return domainauth.User{}, domainauth.InvalidInput("Invalid role")
	}
	u := domainauth.User{ID: uuid.NewString(), Name: reg.Name, Email: reg.Email, Role: reg.Role}
	if err := g.add(u, reg.Password); err != nil {
		var ae *domainauth.Error
		if errors.As(err, &ae) {
			return domainauth.User{}, ae
		}
		return domainauth.User{}, domainauth.InvalidInput(err.Error())
	}
	return u, nil
}

// Revoke invalidates a token, as a server-side logout would.
func (g *Gateway) Revoke(c domainauth.Credential) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(string(c), &claims); err != nil || claims.ID == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revoked[claims.ID] = struct{}{}
}
