package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/manager"
)

func init() {
	Register(&EditCmd{})
	Register(&AdjustCmd{})
	Register(&RecomputeCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct{}

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return nil }
func (c *EditCmd) Synopsis() string   { return "Change the estimate of a task" }
func (c *EditCmd) Usage() string      { return "lockin edit <n> <minutes>" }
func (c *EditCmd) NeedsManager() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	pos, err := ParsePosition(args)
	if err != nil {
		return usageError(errOut, err)
	}
	if len(args) < 2 {
		return usageError(errOut, errors.New("minutes required"))
	}
	minutes, err := ParseMinutes(args[1])
	if err != nil {
		return usageError(errOut, err)
	}

	task, err := taskAt(m, pos)
	if err != nil {
		return lookupFailed(errOut, err)
	}

	changed, err := m.EditTaskTime(task.ID, minutes)
	return applied(cfg, pos, changed, err, out, errOut)
}

// AdjustCmd implements the adjust command.
// It changes the estimate of the task being worked on.
type AdjustCmd struct{}

func (c *AdjustCmd) Name() string       { return "adjust" }
func (c *AdjustCmd) Aliases() []string  { return nil }
func (c *AdjustCmd) Synopsis() string   { return "Add or remove minutes from the current task" }
func (c *AdjustCmd) Usage() string      { return "lockin adjust <+/-minutes>" }
func (c *AdjustCmd) NeedsManager() bool { return true }

func (c *AdjustCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AdjustCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return usageError(errOut, errors.New("minutes required"))
	}
	delta, err := strconv.Atoi(args[0])
	if err != nil || delta == 0 {
		fmt.Fprintf(errOut, "error: invalid minutes: %s\n", args[0])
		return exitcode.UserError
	}

	changed, err := m.AdjustFirstTask(delta)
	if err != nil {
		return storageFailed(errOut, err)
	}
	if !changed {
		fmt.Fprintln(errOut, "error: no tasks")
		return exitcode.UserError
	}
	return ok(cfg, out)
}

// RecomputeCmd implements the recompute command.
type RecomputeCmd struct{}

func (c *RecomputeCmd) Name() string       { return "recompute" }
func (c *RecomputeCmd) Aliases() []string  { return []string{"restart"} }
func (c *RecomputeCmd) Synopsis() string   { return "Restart the schedule from now" }
func (c *RecomputeCmd) Usage() string      { return "lockin recompute" }
func (c *RecomputeCmd) NeedsManager() bool { return true }

func (c *RecomputeCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RecomputeCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	if err := m.Recompute(); err != nil {
		return storageFailed(errOut, err)
	}
	return ok(cfg, out)
}
