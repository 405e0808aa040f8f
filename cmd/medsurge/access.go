package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/medsurge/internal/bootstrap"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/domain/guard"
	"github.com/target/medsurge/internal/domain/rbac"
)

var (
	errPermissionDenied = errors.New("permission denied")
	errAccessDenied     = errors.New("access denied")
)

func runCan(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("can")
	roleFlag := fs.String("role", "", "evaluate under this role instead of the primary one")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: medsurge can [-role ROLE] <permission>", errUsage)
	}
	perm := domainauth.Permission(fs.Arg(0))

	var lens domainauth.Role
	if *roleFlag != "" {
		r, ok := domainauth.ParseRole(*roleFlag)
		if !ok {
			return fmt.Errorf("%w: unknown role %q", errUsage, *roleFlag)
		}
		lens = r
	}

	return cmdCtx.withContainer(func(sc *bootstrap.ServiceContainer) error {
		s := sc.Sessions.Start(cmdCtx.Ctx)
		if !s.IsAuthenticated {
			return errNotSignedIn
		}
		active := s.ActiveRole
		if lens != "" {
			if active = sc.Sessions.SwitchRole(lens); active != lens {
				return fmt.Errorf("%w: role %s is not available to this user", errPermissionDenied, lens)
			}
		}
		if !sc.Sessions.HasPermission(perm) {
			if err := writef(cmdCtx.Out, "no: %s lacks %s\n", active, perm); err != nil {
				return err
			}
			return errPermissionDenied
		}
		return writef(cmdCtx.Out, "yes: %s has %s\n", active, perm)
	})
}

func runCheck(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("check")
	timeout := fs.Duration("timeout", 30*time.Second, "how long to wait for the session check")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: medsurge check [-timeout D] <path>", errUsage)
	}
	path := fs.Arg(0)

	table, err := bootstrap.BuildRouteTable(cmdCtx.Config.Guard)
	if err != nil {
		return err
	}
	region, ok := table.Match(path)
	if !ok {
		return writef(cmdCtx.Out, "%s: public\n", path)
	}
	g := bootstrap.BuildGuard(cmdCtx.Config.Guard)

	return cmdCtx.withContainer(func(sc *bootstrap.ServiceContainer) error {
		ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
		defer cancel()

		var d guard.Decision
		eg, gctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			sc.Sessions.Start(gctx)
			return nil
		})
		eg.Go(func() error {
			var rerr error
			d, rerr = g.Resolve(gctx, sc.Sessions, region, path)
			return rerr
		})
		if err := eg.Wait(); err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		return printDecision(cmdCtx, g, region, path, d)
	})
}

func printDecision(cmdCtx *commandContext, g *guard.Guard, region guard.Region, path string, d guard.Decision) error {
	w := cmdCtx.Out
	if err := writef(w, "%s: region %s, %s\n", path, region.Name, d.Outcome); err != nil {
		return err
	}
	switch d.Outcome {
	case guard.OutcomeAllowed:
		return nil
	case guard.OutcomeDeniedUnauthenticated:
		if err := writef(w, "redirect: %s\n", g.LoginURL(d.From)); err != nil {
			return err
		}
	default:
		if err := writef(w, "redirect: %s\n", d.Redirect); err != nil {
			return err
		}
	}
	return errAccessDenied
}

func runRoles(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("roles")
	permFlag := fs.String("permission", "", "only list roles holding this permission")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	roles := domainauth.AllRoles()
	if *permFlag != "" {
		roles = rbac.RolesWith(domainauth.Permission(*permFlag))
	}

	tw := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	if err := writef(tw, "ROLE\tPERMISSIONS\n"); err != nil {
		return err
	}
	for _, r := range roles {
		if err := writef(tw, "%s\t%s\n", r, joinPermissions(rbac.PermissionsFor(r))); err != nil {
			return err
		}
	}
	return tw.Flush()
}
