package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/target/medsurge/config"
	"github.com/target/medsurge/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type containerFactory func(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*bootstrap.ServiceContainer, error)

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer

	newContainer containerFactory
	readPassword func(prompt string) (string, error)
}

// errUsage marks failures caused by bad arguments rather than by the session stack.
var errUsage = errors.New("usage error")

func main() {
	logger := bootstrap.InitLogger(os.Stderr, slog.LevelInfo)

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger = bootstrap.InitLogger(os.Stderr, cfg.Observability.SlogLevel())

	cmdCtx := &commandContext{
		Ctx:          context.Background(),
		Logger:       logger,
		Config:       cfg,
		Out:          os.Stdout,
		newContainer: defaultContainer,
		readPassword: promptPassword,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			os.Exit(0) //nolint:forbidigo // -h is not a failure
		}
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		if errors.Is(runErr, errUsage) {
			os.Exit(2) //nolint:forbidigo // CLI must distinguish bad invocations from failures
		}
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func defaultContainer(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*bootstrap.ServiceContainer, error) {
	return bootstrap.NewServiceContainer(ctx, cfg, logger, bootstrap.ServiceContainerOptions{})
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in and store the credential for later commands",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			description: "Discard the stored credential",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Validate the stored credential and show the signed-in user",
			run:         runWhoami,
		},
		"register": {
			name:        "register",
			description: "Create an account (does not sign in)",
			run:         runRegister,
		},
		"can": {
			name:        "can",
			description: "Check whether the signed-in user holds a permission",
			run:         runCan,
		},
		"check": {
			name:        "check",
			description: "Evaluate the route guard for a console path",
			run:         runCheck,
		},
		"roles": {
			name:        "roles",
			description: "List roles and their permissions",
			run:         runRoles,
		},
		"serve": {
			name:        "serve",
			description: "Run the console HTTP server",
			run:         runServe,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: medsurge <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(w, "  %-24s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

// withContainer builds the session stack for one command and always closes it.
func (c *commandContext) withContainer(fn func(*bootstrap.ServiceContainer) error) error {
	sc, err := c.newContainer(c.Ctx, c.Config, c.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sc.Close(); cerr != nil {
			c.Logger.Warn("close services failed", "error", cerr)
		}
	}()
	return fn(sc)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errors.Join(errUsage, err)
	}
	return nil
}
