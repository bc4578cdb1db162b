package commands

import (
	"context"
	"flag"
	"io"

	"lockin/internal/config"
	"lockin/internal/manager"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
// The remote copy is deleted by the next sync cycle.
type RmCmd struct{}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "lockin rm <n>" }
func (c *RmCmd) NeedsManager() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	pos, err := ParsePosition(args)
	if err != nil {
		return usageError(errOut, err)
	}
	task, err := taskAt(m, pos)
	if err != nil {
		return lookupFailed(errOut, err)
	}

	changed, err := m.DeleteTask(task.ID)
	return applied(cfg, pos, changed, err, out, errOut)
}
