package auth

// Package auth contains domain-level types for credentials, users and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"slices"
	"strings"
)

// Role represents one of the fixed professional roles of the application.
// Keep string form for easy transport and persistence.
type Role string

const (
	RoleManagement Role = "management"
	RoleDoctor     Role = "doctor"
	RoleNurse      Role = "nurse"
	RoleInventory  Role = "inventory"
	RoleEmergency  Role = "emergency"
	RolePatient    Role = "patient"
)

var allRoles = []Role{
	RoleManagement,
	RoleDoctor,
	RoleNurse,
	RoleInventory,
	RoleEmergency,
	RolePatient,
}

// AllRoles returns the closed role set in canonical order.
func AllRoles() []Role {
	return slices.Clone(allRoles)
}

// ParseRole converts a raw role name into a Role. Matching is case-insensitive.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(allRoles, r) {
		return r, true
	}
	return "", false
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	return slices.Contains(allRoles, r)
}

func (r Role) String() string { return string(r) }

// Permission is an opaque capability identifier derived from a Role.
type Permission string

// Credential is an opaque bearer token. The zero value means "no credential".
// Presence only proves an earlier login succeeded, never that it is still valid.
type Credential string

// IsZero reports whether no credential is held.
func (c Credential) IsZero() bool { return strings.TrimSpace(string(c)) == "" }

// String redacts the token so credentials never end up in logs.
func (c Credential) String() string {
	if c.IsZero() {
		return ""
	}
	return "[redacted]"
}

// User is the identity resolved by the identity gateway.
// A User value is a snapshot: it is replaced wholesale on re-validation.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	// Roles lists every role the user may switch to. Often empty.
	Roles []Role `json:"roles,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate a shared snapshot.
func (u User) Clone() User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

// HasRole reports whether the user is entitled to role r, either as the
// primary role or through the Roles list.
func (u User) HasRole(r Role) bool {
	return u.Role == r || slices.Contains(u.Roles, r)
}

// Registration carries sign-up data. ConfirmPassword is a client-only field
// and must never be transmitted.
type Registration struct {
	Email           string         `json:"email"                      validate:"required,email"`
	Password        string         `json:"password"                   validate:"required,min=6,max=72"`
	ConfirmPassword string         `json:"-"                          validate:"omitempty,eqfield=Password"`
	Name            string         `json:"name"                       validate:"required,max=200"`
	Role            Role           `json:"role"                       validate:"required,role"`
	Profile         map[string]any `json:"profile,omitempty"`
}

// Phase is the session state machine position.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseLoading         Phase = "loading"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseUnauthenticated Phase = "unauthenticated"
)

// Session is the process-wide authentication record.
// IsAuthenticated implies User != nil. Loading means the session is not yet
// a firm basis for route decisions.
type Session struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
	Loading         bool  `json:"loading"`
	// ActiveRole is the permission lens currently applied; it starts as User.Role.
	ActiveRole Role  `json:"activeRole,omitempty"`
	Phase      Phase `json:"phase"`
}

// NewSession returns the initial session shape used at process start.
func NewSession() Session {
	return Session{Loading: true, Phase: PhaseIdle}
}

// UnauthenticatedSession returns the settled signed-out shape.
func UnauthenticatedSession() Session {
	return Session{Phase: PhaseUnauthenticated}
}

// AuthenticatedSession returns a settled session for user.
func AuthenticatedSession(user User) Session {
	u := user.Clone()
	return Session{
		User:            &u,
		IsAuthenticated: true,
		ActiveRole:      u.Role,
		Phase:           PhaseAuthenticated,
	}
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	if s.User != nil {
		u := s.User.Clone()
		s.User = &u
	}
	return s
}
