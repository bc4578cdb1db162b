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
	Register(&CompletedCmd{})
	Register(&RmCompletedCmd{})
	Register(&ClearCmd{})
}

// CompletedCmd implements the completed command.
type CompletedCmd struct{}

func (c *CompletedCmd) Name() string       { return "completed" }
func (c *CompletedCmd) Aliases() []string  { return nil }
func (c *CompletedCmd) Synopsis() string   { return "List completed tasks" }
func (c *CompletedCmd) Usage() string      { return "lockin completed" }
func (c *CompletedCmd) NeedsManager() bool { return true }

func (c *CompletedCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CompletedCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	tasks, err := m.CompletedTasks()
	if err != nil {
		return storageFailed(errOut, err)
	}
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no completed tasks")
		}
		return exitcode.Success
	}
	for i, task := range tasks {
		output.FormatCompletedTask(out, i+1, task)
	}
	return exitcode.Success
}

// RmCompletedCmd implements the rmcompleted command.
type RmCompletedCmd struct{}

func (c *RmCompletedCmd) Name() string       { return "rmcompleted" }
func (c *RmCompletedCmd) Aliases() []string  { return nil }
func (c *RmCompletedCmd) Synopsis() string   { return "Delete a completed task" }
func (c *RmCompletedCmd) Usage() string      { return "lockin rmcompleted <n>" }
func (c *RmCompletedCmd) NeedsManager() bool { return true }

func (c *RmCompletedCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCompletedCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	pos, err := ParsePosition(args)
	if err != nil {
		return usageError(errOut, err)
	}
	task, err := completedAt(m, pos)
	if err != nil {
		return lookupFailed(errOut, err)
	}

	changed, err := m.DeleteCompletedTask(task.ID)
	return applied(cfg, pos, changed, err, out, errOut)
}

// ClearCmd implements the clear command.
type ClearCmd struct{}

func (c *ClearCmd) Name() string       { return "clear" }
func (c *ClearCmd) Aliases() []string  { return nil }
func (c *ClearCmd) Synopsis() string   { return "Delete all completed tasks" }
func (c *ClearCmd) Usage() string      { return "lockin clear" }
func (c *ClearCmd) NeedsManager() bool { return true }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	n, err := m.ClearCompleted()
	if err != nil {
		return storageFailed(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "removed %d completed tasks\n", n)
	}
	return exitcode.Success
}
