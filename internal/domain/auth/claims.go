package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialInfo is what can be read from a credential without asking the server.
// It is a display hint only: the server remains the sole authority on validity.
type CredentialInfo struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
}

// Expired reports whether the embedded expiry has passed at now.
// A zero ExpiresAt never expires.
func (ci CredentialInfo) Expired(now time.Time) bool {
	return !ci.ExpiresAt.IsZero() && now.After(ci.ExpiresAt)
}

type credentialClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ErrOpaqueCredential is returned when a credential is not a JWT.
var ErrOpaqueCredential = errors.New("credential is opaque")

// InspectCredential decodes JWT claims from c without verifying the signature.
// Opaque (non-JWT) credentials return ErrOpaqueCredential.
func InspectCredential(c Credential) (CredentialInfo, error) {
	if c.IsZero() {
		return CredentialInfo{}, ErrOpaqueCredential
	}
	var claims credentialClaims
	if _, _, err := jwt.NewParser().ParseUnverified(string(c), &claims); err != nil {
		return CredentialInfo{}, errors.Join(ErrOpaqueCredential, err)
	}
	info := CredentialInfo{Subject: claims.Subject}
	if r, ok := ParseRole(claims.Role); ok {
		info.Role = r
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
