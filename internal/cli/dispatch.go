// Package cli parses the command line and dispatches to commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lockin/internal/backend/lockinapi"
	"lockin/internal/commands"
	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/logging"
	"lockin/internal/manager"
	"lockin/internal/retry"
	"lockin/internal/service"
	"lockin/internal/store"
)

// ErrSession marks a stored session that cannot be used.
var ErrSession = errors.New("invalid session")

// ManagerFactory creates a Manager from config.
// Used to inject the store and backend during dispatch.
type ManagerFactory func(ctx context.Context, cfg *config.Config) (*manager.Manager, error)

// OpenManager opens the local store and, when a session is stored,
// connects the manager to the backend.
func OpenManager(ctx context.Context, cfg *config.Config) (*manager.Manager, error) {
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	var remote service.Remote
	if cfg.HasSession() {
		client, err := lockinapi.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSession, err)
		}
		remote = client
	}

	return manager.New(manager.Options{
		Store:        st,
		Remote:       remote,
		Retry:        retry.New(cfg.Settings.RetryDelay),
		SyncInterval: cfg.Settings.SyncInterval,
	}), nil
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ManagerFactory
}

// NewDispatcher creates a new dispatcher with the given registry and manager factory.
// A nil factory uses OpenManager.
func NewDispatcher(registry *commands.Registry, factory ManagerFactory) *Dispatcher {
	if factory == nil {
		factory = OpenManager
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	// Look up command
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		if suggestion, found := d.registry.Suggest(cmdName); found {
			fmt.Fprintf(errOut, "error: unknown command: %s (did you mean %s?)\n", cmdName, suggestion)
			return exitcode.UserError
		}
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	// Parse flags
	remaining := args[1:]
	return d.dispatchCommand(ctx, cmd, remaining, out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	// Parse flags
	if err := fs.Parse(endFlagsAtNegative(args)); err != nil {
		// Handle specific error types
		errStr := err.Error()

		// Check for missing flag value
		if strings.HasPrefix(errStr, "flag needs an argument:") {
			flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
			fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagName)
			return exitcode.UserError
		}

		// Check for unknown flag
		if strings.HasPrefix(errStr, "flag provided but not defined:") {
			flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
			fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
			return exitcode.UserError
		}

		// Generic error handling for bad flag values
		if strings.Contains(errStr, "invalid value") {
			fmt.Fprintf(errOut, "error: %s\n", errStr)
			return exitcode.UserError
		}

		fmt.Fprintf(errOut, "error: %s\n", errStr)
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") && !isNumber(positionalArgs[0]) {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	// Create config
	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	level := logging.WarnLevel
	if l, ok := cmd.(commands.LogLeveler); ok {
		level = logging.Level(l.LogLevel())
	}
	if debug {
		level = logging.DebugLevel
	}
	logging.Init(logging.Config{
		Level:      level,
		JSONOutput: cfg.Settings.LogJSON,
		Output:     errOut,
	})

	var m *manager.Manager
	if cmd.NeedsManager() {
		m, err = d.factory(ctx, cfg)
		if err != nil {
			if errors.Is(err, ErrSession) {
				fmt.Fprintf(errOut, "error: auth error: %s (run: lockin login)\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: storage error: %s\n", err)
			return exitcode.StorageError
		}
	}

	// Run command
	return cmd.Run(ctx, cfg, m, positionalArgs, out, errOut)
}

// endFlagsAtNegative inserts "--" before the first negative number so that
// "adjust -15" is not read as a flag.
func endFlagsAtNegative(args []string) []string {
	for i, arg := range args {
		if arg == "--" {
			return args
		}
		if strings.HasPrefix(arg, "-") && isNumber(arg) {
			out := make([]string, 0, len(args)+1)
			out = append(out, args[:i]...)
			out = append(out, "--")
			return append(out, args[i:]...)
		}
	}
	return args
}

// isNumber reports whether s is a signed integer, such as "-15".
func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
