package commands

import (
	"context"
	"flag"
	"io"

	"lockin/internal/config"
	"lockin/internal/manager"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string   { return "Mark a task as completed" }
func (c *DoneCmd) Usage() string      { return "lockin done <n>" }
func (c *DoneCmd) NeedsManager() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	pos, err := ParsePosition(args)
	if err != nil {
		return usageError(errOut, err)
	}
	task, err := taskAt(m, pos)
	if err != nil {
		return lookupFailed(errOut, err)
	}

	changed, err := m.CompleteTask(task.ID)
	return applied(cfg, pos, changed, err, out, errOut)
}
