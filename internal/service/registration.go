package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// RegisterResult mirrors LoginResult for sign-up. A successful registration
// never authenticates; the user signs in afterwards.
type RegisterResult struct {
	Success bool
	User    *domainauth.User
	Err     *domainauth.Error
}

// newRegistrationValidator returns a validator aware of the closed role set.
// Field names in messages follow the JSON names the UI submits.
func newRegistrationValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return "confirm_password"
		case "":
			return strings.ToLower(f.Name)
		}
		return name
	})
	// Registration only ever passes a Role value here.
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domainauth.Role(fl.Field().String()).Valid()
	})
	return v
}

// ValidateRegistration checks reg locally before any network call.
func (m *SessionManager) ValidateRegistration(reg domainauth.Registration) *domainauth.Error {
	if err := m.validator.Struct(reg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domainauth.InvalidInput(fieldMessage(verrs[0]))
		}
		return domainauth.InvalidInput(err.Error())
	}
	return nil
}

// Register creates an account. The session is left untouched.
func (m *SessionManager) Register(ctx context.Context, reg domainauth.Registration) RegisterResult {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if r, ok := domainauth.ParseRole(string(reg.Role)); ok {
		reg.Role = r
	}
	if verr := m.ValidateRegistration(reg); verr != nil {
		return RegisterResult{Err: verr}
	}
	reg.ConfirmPassword = ""

	start := time.Now()
	user, err := m.gateway.Register(ctx, reg)
	m.metrics.GatewayCall("register", time.Since(start), err)
	if err != nil {
		ae := domainauth.Classify(err)
		m.logger.InfoContext(ctx, "registration rejected", "kind", ae.Kind)
		return RegisterResult{Err: ae}
	}
	m.logger.InfoContext(ctx, "registration succeeded", "user_id", user.ID, "role", user.Role)
	u := user.Clone()
	return RegisterResult{Success: true, User: &u}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "eqfield":
		return "passwords do not match"
	case "role":
		return fmt.Sprintf("%s must be one of %s", field, roleList())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func roleList() string {
	roles := domainauth.AllRoles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
