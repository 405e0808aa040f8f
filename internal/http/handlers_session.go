package httpx

import (
	"context"
	"errors"
	"net/http"

	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/domain/guard"
	"github.com/target/medsurge/internal/domain/rbac"
	"github.com/target/medsurge/internal/service"
)

// SessionService is the session manager surface the console exposes.
type SessionService interface {
	SessionSnapshotter
	Login(ctx context.Context, email, password string) service.LoginResult
	Logout(ctx context.Context)
	Register(ctx context.Context, reg domainauth.Registration) service.RegisterResult
	RefreshFromStorage(ctx context.Context) domainauth.Session
	SwitchRole(target domainauth.Role) domainauth.Role
	Permissions() []domainauth.Permission
}

var _ SessionService = (*service.SessionManager)(nil)

// SessionHandlers serves the /api/session endpoints.
type SessionHandlers struct {
	Svc SessionService
}

type sessionResponse struct {
	domainauth.Session
	Permissions []domainauth.Permission `json:"permissions"`
}

func (h *SessionHandlers) sessionBody() sessionResponse {
	perms := h.Svc.Permissions()
	if perms == nil {
		perms = []domainauth.Permission{}
	}
	return sessionResponse{Session: h.Svc.Snapshot(), Permissions: perms}
}

// Get handles GET /api/session.
func (h *SessionHandlers) Get(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.sessionBody())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/session/login.
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	res := h.Svc.Login(r.Context(), req.Email, req.Password)
	if !res.Success {
		WriteAuthError(w, res.Err)
		return
	}
	WriteJSON(w, http.StatusOK, h.sessionBody())
}

// Logout handles POST /api/session/logout. It always succeeds.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Svc.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /api/session/refresh: re-run the stored credential check.
func (h *SessionHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	h.Svc.RefreshFromStorage(r.Context())
	WriteJSON(w, http.StatusOK, h.sessionBody())
}

type registerRequest struct {
	Email           string         `json:"email"`
	Password        string         `json:"password"`
	ConfirmPassword string         `json:"confirmPassword"`
	Name            string         `json:"name"`
	Role            string         `json:"role"`
	Profile         map[string]any `json:"profile,omitempty"`
}

// Register handles POST /api/session/register. The session is not changed.
func (h *SessionHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	res := h.Svc.Register(r.Context(), domainauth.Registration{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
		Role:            domainauth.Role(req.Role),
		Profile:         req.Profile,
	})
	if !res.Success {
		WriteAuthError(w, res.Err)
		return
	}
	WriteJSON(w, http.StatusCreated, res.User)
}

type roleRequest struct {
	Role string `json:"role"`
}

var errRoleNotPermitted = errors.New("the signed-in user cannot act in that role")

// SwitchRole handles PUT /api/session/role.
func (h *SessionHandlers) SwitchRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	target, ok := domainauth.ParseRole(req.Role)
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "unknown_role", Err: errors.New("unknown role")})
		return
	}
	if !h.Svc.Snapshot().IsAuthenticated {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return
	}
	if got := h.Svc.SwitchRole(target); got != target {
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "role_not_permitted", Err: errRoleNotPermitted})
		return
	}
	WriteJSON(w, http.StatusOK, h.sessionBody())
}

type permissionsResponse struct {
	Role        domainauth.Role         `json:"role,omitempty"`
	Permissions []domainauth.Permission `json:"permissions"`
	// Allowed answers ?check=<permission>.
	Allowed *bool `json:"allowed,omitempty"`
}

// Permissions handles GET /api/permissions[?role=r][&check=p].
// Without role the active role of the current session is used.
func (h *SessionHandlers) Permissions(w http.ResponseWriter, r *http.Request) {
	var resp permissionsResponse
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, ok := domainauth.ParseRole(raw)
		if !ok {
			WriteError(w, ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "unknown_role", Err: errors.New("unknown role")})
			return
		}
		resp.Role = role
		resp.Permissions = rbac.PermissionsFor(role)
	} else {
		resp.Role = h.Svc.Snapshot().ActiveRole
		resp.Permissions = h.Svc.Permissions()
	}
	if resp.Permissions == nil {
		resp.Permissions = []domainauth.Permission{}
	}
	if check := r.URL.Query().Get("check"); check != "" {
		allowed := rbac.HasPermission(resp.Role, domainauth.Permission(check))
		resp.Allowed = &allowed
	}
	WriteJSON(w, http.StatusOK, resp)
}

// LoginPage handles GET /login. The console has no forms; it tells the caller
// where to sign in and where they were headed.
func (h *SessionHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"phase":        string(h.Svc.Snapshot().Phase),
		"login":        "POST /api/session/login",
		"redirect_uri": safeRedirectPath(r.URL.Query().Get("redirect_uri")),
	})
}

// UnauthorizedPage handles GET /unauthorized.
func (h *SessionHandlers) UnauthorizedPage(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, ErrorParams{
		Code:    http.StatusForbidden,
		ErrCode: "insufficient_permissions",
		Err:     errors.New("your role does not have access to that area"),
	})
}

// RegionHandler renders a guarded region once RequireRegion admitted the request.
func RegionHandler(region guard.Region) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSessionFromContext(r.Context())
		perms := rbac.PermissionsFor(sess.ActiveRole)
		WriteJSON(w, http.StatusOK, map[string]any{
			"region":      region.Name,
			"path":        r.URL.Path,
			"user":        sess.User,
			"activeRole":  sess.ActiveRole,
			"permissions": perms,
		})
	}
}
