package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/target/medsurge/internal/bootstrap"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

var errNotSignedIn = errors.New("not signed in")

type loginOptions struct {
	Email    string
	Password string
}

func parseLoginFlags(args []string) (loginOptions, error) {
	var opts loginOptions
	fs := newFlagSet("login")
	fs.StringVar(&opts.Email, "email", "", "account email (required)")
	fs.StringVar(&opts.Password, "password", "", "password (prompted when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return opts, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return opts, fmt.Errorf("%w: -email is required", errUsage)
	}
	return opts, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args)
	if err != nil {
		return err
	}
	if opts.Password == "" {
		if opts.Password, err = cmdCtx.readPassword("Password: "); err != nil {
			return err
		}
	}

	return cmdCtx.withContainer(func(sc *bootstrap.ServiceContainer) error {
		res := sc.Sessions.Login(cmdCtx.Ctx, opts.Email, opts.Password)
		if !res.Success {
			return fmt.Errorf("login failed: %s", res.Err.UserMessage())
		}
		return writef(cmdCtx.Out, "Signed in as %s <%s> (%s)\n", res.User.Name, res.User.Email, res.User.Role)
	})
}

func runLogout(cmdCtx *commandContext, args []string) error {
	if err := parseFlags(newFlagSet("logout"), args); err != nil {
		return err
	}
	return cmdCtx.withContainer(func(sc *bootstrap.ServiceContainer) error {
		sc.Sessions.Logout(cmdCtx.Ctx)
		return writeln(cmdCtx.Out, "Signed out")
	})
}

type whoamiOutput struct {
	Session     domainauth.Session      `json:"session"`
	Permissions []domainauth.Permission `json:"permissions"`
	ExpiresAt   *time.Time              `json:"expiresAt,omitempty"`
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("whoami")
	asJSON := fs.Bool("json", false, "print the session as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return cmdCtx.withContainer(func(sc *bootstrap.ServiceContainer) error {
		s := sc.Sessions.Start(cmdCtx.Ctx)
		out := whoamiOutput{Session: s, Permissions: sc.Sessions.Permissions()}
		if info, err := domainauth.InspectCredential(sc.Sessions.Credential()); err == nil && !info.ExpiresAt.IsZero() {
			out.ExpiresAt = &info.ExpiresAt
		}
		if *asJSON {
			if err := writeJSON(cmdCtx.Out, out); err != nil {
				return err
			}
		} else if err := printWhoami(cmdCtx, out); err != nil {
			return err
		}
		if !s.IsAuthenticated {
			return errNotSignedIn
		}
		return nil
	})
}

func printWhoami(cmdCtx *commandContext, out whoamiOutput) error {
	w := cmdCtx.Out
	if !out.Session.IsAuthenticated || out.Session.User == nil {
		return writeln(w, "Not signed in")
	}
	u := out.Session.User
	if err := writef(w, "User:        %s <%s>\n", u.Name, u.Email); err != nil {
		return err
	}
	if err := writef(w, "ID:          %s\n", u.ID); err != nil {
		return err
	}
	if err := writef(w, "Role:        %s\n", out.Session.ActiveRole); err != nil {
		return err
	}
	if len(u.Roles) > 0 {
		if err := writef(w, "Roles:       %s\n", joinRoles(u.Roles)); err != nil {
			return err
		}
	}
	if err := writef(w, "Permissions: %s\n", joinPermissions(out.Permissions)); err != nil {
		return err
	}
	if out.ExpiresAt != nil {
		return writef(w, "Expires:     %s\n", out.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

type registerOptions struct {
	Email    string
	Name     string
	Role     string
	Password string
}

func parseRegisterFlags(args []string) (registerOptions, error) {
	var opts registerOptions
	fs := newFlagSet("register")
	fs.StringVar(&opts.Email, "email", "", "account email (required)")
	fs.StringVar(&opts.Name, "name", "", "display name (required)")
	fs.StringVar(&opts.Role, "role", "", "role: "+strings.Join(roleNames(), ", "))
	fs.StringVar(&opts.Password, "password", "", "password (prompted twice when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return opts, err
	}
	return opts, nil
}

func runRegister(cmdCtx *commandContext, args []string) error {
	opts, err := parseRegisterFlags(args)
	if err != nil {
		return err
	}
	reg := domainauth.Registration{
		Email:           opts.Email,
		Name:            opts.Name,
		Role:            domainauth.Role(opts.Role),
		Password:        opts.Password,
		ConfirmPassword: opts.Password,
	}
	if reg.Password == "" {
		if reg.Password, err = cmdCtx.readPassword("Password: "); err != nil {
			return err
		}
		if reg.ConfirmPassword, err = cmdCtx.readPassword("Confirm password: "); err != nil {
			return err
		}
	}

	return cmdCtx.withContainer(func(sc *bootstrap.ServiceContainer) error {
		res := sc.Sessions.Register(cmdCtx.Ctx, reg)
		if !res.Success {
			if res.Err.Kind == domainauth.KindInvalidInput {
				return fmt.Errorf("%w: %s", errUsage, res.Err.UserMessage())
			}
			return fmt.Errorf("registration failed: %s", res.Err.UserMessage())
		}
		return writef(cmdCtx.Out, "Registered %s <%s> as %s. Sign in with: medsurge login -email %s\n",
			res.User.Name, res.User.Email, res.User.Role, res.User.Email)
	})
}

func joinRoles(roles []domainauth.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func joinPermissions(perms []domainauth.Permission) string {
	if len(perms) == 0 {
		return "-"
	}
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func roleNames() []string {
	roles := domainauth.AllRoles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}
