// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"lockin/internal/config"
	"lockin/internal/manager"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsManager returns true if the command works on the task state.
	// Commands like help, version, login, logout return false.
	NeedsManager() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, settings).
	// m is nil if NeedsManager() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int
}

// LogLeveler is implemented by commands that log above the default level.
type LogLeveler interface {
	LogLevel() string
}
