package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/manager"
	"lockin/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `lockin` (no args) and `lockin list`.
type ListCmd struct{}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List ongoing tasks" }
func (c *ListCmd) Usage() string      { return "lockin list [common flags]" }
func (c *ListCmd) NeedsManager() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks, err := m.Tasks()
	if err != nil {
		return storageFailed(errOut, err)
	}
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks")
		}
		return exitcode.Success
	}

	total := 0
	for i, task := range tasks {
		output.FormatTask(out, i+1, task)
		total += task.EstimatedMinutes
	}
	output.FormatTimeLeft(out, tasks[0], m.Now())
	fmt.Fprintf(out, "total: %s\n", output.FormatTime(total))
	return exitcode.Success
}
