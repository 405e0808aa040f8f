package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/medsurge/internal/bootstrap"
)

func runServe(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("addr", cmdCtx.Config.HTTP.Addr, "listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmdCtx.withContainer(func(sc *bootstrap.ServiceContainer) error {
		ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", *addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", *addr, err)
		}
		cmdCtx.Logger.InfoContext(ctx, "medsurge console starting",
			"addr", ln.Addr().String(),
			"identity_mode", sc.Config.Identity.Mode,
			"credential_backend", sc.Config.Credential.Backend,
			"metrics_backend", sc.Config.Observability.Metrics.Backend,
		)
		return bootstrap.Serve(ctx, sc, ln)
	})
}
