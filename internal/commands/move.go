package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/manager"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd implements the mv command.
type MoveCmd struct{}

func (c *MoveCmd) Name() string       { return "mv" }
func (c *MoveCmd) Aliases() []string  { return []string{"move"} }
func (c *MoveCmd) Synopsis() string   { return "Move a task up or down the queue" }
func (c *MoveCmd) Usage() string      { return "lockin mv <n> up|down" }
func (c *MoveCmd) NeedsManager() bool { return true }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	pos, err := ParsePosition(args)
	if err != nil {
		return usageError(errOut, err)
	}
	if len(args) < 2 {
		return usageError(errOut, errors.New("direction required (up or down)"))
	}
	dir, valid := manager.ParseDirection(args[1])
	if !valid {
		fmt.Fprintf(errOut, "error: invalid direction: %s\n", args[1])
		return exitcode.UserError
	}

	task, err := taskAt(m, pos)
	if err != nil {
		return lookupFailed(errOut, err)
	}

	// Moving past either end leaves the queue as it is.
	if _, err := m.MoveTask(task.ID, dir); err != nil {
		return storageFailed(errOut, err)
	}
	return ok(cfg, out)
}
