package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/manager"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "lockin help" }
func (c *HelpCmd) NeedsManager() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  lockin                                     List ongoing tasks
  lockin list [common flags]
  lockin add [common flags] [--save] <minutes> <name...>
  lockin done [common flags] <n>
  lockin rm [common flags] <n>
  lockin mv [common flags] <n> up|down
  lockin edit [common flags] <n> <minutes>
  lockin adjust [common flags] <+/-minutes>
  lockin recompute [common flags]
  lockin completed [common flags]
  lockin rmcompleted [common flags] <n>
  lockin clear [common flags]
  lockin saved [common flags]
  lockin save [common flags] <minutes> <name...>
  lockin unsave [common flags] <n>
  lockin editsaved [common flags] <n> <minutes> <name...>
  lockin use [common flags] <n>
  lockin sync [common flags] [--timeout <duration>]
  lockin status [common flags]
  lockin daemon [common flags] [--metrics-addr <addr>]
  lockin login [common flags] --username <name> --token <token> [--refresh-token <token>]
  lockin logout [common flags]
  lockin help
  lockin version

<n> is the position printed by list, completed or saved.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
