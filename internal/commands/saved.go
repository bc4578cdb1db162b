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
	"lockin/internal/output"
)

func init() {
	Register(&SavedCmd{})
	Register(&SaveCmd{})
	Register(&UnsaveCmd{})
	Register(&EditSavedCmd{})
	Register(&UseCmd{})
}

// SavedCmd implements the saved command.
type SavedCmd struct{}

func (c *SavedCmd) Name() string       { return "saved" }
func (c *SavedCmd) Aliases() []string  { return []string{"templates"} }
func (c *SavedCmd) Synopsis() string   { return "List saved tasks" }
func (c *SavedCmd) Usage() string      { return "lockin saved" }
func (c *SavedCmd) NeedsManager() bool { return true }

func (c *SavedCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SavedCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	saved, err := m.SavedTasks()
	if err != nil {
		return storageFailed(errOut, err)
	}
	if len(saved) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no saved tasks")
		}
		return exitcode.Success
	}
	for i, s := range saved {
		output.FormatSavedTask(out, i+1, s)
	}
	return exitcode.Success
}

// SaveCmd implements the save command.
type SaveCmd struct{}

func (c *SaveCmd) Name() string       { return "save" }
func (c *SaveCmd) Aliases() []string  { return nil }
func (c *SaveCmd) Synopsis() string   { return "Save a task template" }
func (c *SaveCmd) Usage() string      { return "lockin save <minutes> <name...>" }
func (c *SaveCmd) NeedsManager() bool { return true }

func (c *SaveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SaveCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	minutes, name, err := parseEstimateAndName(args)
	if err != nil {
		return usageError(errOut, err)
	}
	if _, err := m.AddSavedTask(name, minutes); err != nil {
		return storageFailed(errOut, err)
	}
	return ok(cfg, out)
}

// UnsaveCmd implements the unsave command.
type UnsaveCmd struct{}

func (c *UnsaveCmd) Name() string       { return "unsave" }
func (c *UnsaveCmd) Aliases() []string  { return nil }
func (c *UnsaveCmd) Synopsis() string   { return "Delete a saved task" }
func (c *UnsaveCmd) Usage() string      { return "lockin unsave <n>" }
func (c *UnsaveCmd) NeedsManager() bool { return true }

func (c *UnsaveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UnsaveCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	pos, err := ParsePosition(args)
	if err != nil {
		return usageError(errOut, err)
	}
	s, err := savedAt(m, pos)
	if err != nil {
		return lookupFailed(errOut, err)
	}

	changed, err := m.DeleteSavedTask(s.FrontendKey)
	return applied(cfg, pos, changed, err, out, errOut)
}

// EditSavedCmd implements the editsaved command.
type EditSavedCmd struct{}

func (c *EditSavedCmd) Name() string       { return "editsaved" }
func (c *EditSavedCmd) Aliases() []string  { return nil }
func (c *EditSavedCmd) Synopsis() string   { return "Change a saved task" }
func (c *EditSavedCmd) Usage() string      { return "lockin editsaved <n> <minutes> <name...>" }
func (c *EditSavedCmd) NeedsManager() bool { return true }

func (c *EditSavedCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *EditSavedCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	pos, err := ParsePosition(args)
	if err != nil {
		return usageError(errOut, err)
	}
	minutes, name, err := parseEstimateAndName(args[1:])
	if err != nil {
		return usageError(errOut, err)
	}
	s, err := savedAt(m, pos)
	if err != nil {
		return lookupFailed(errOut, err)
	}

	changed, err := m.EditSavedTask(s.FrontendKey, name, minutes)
	return applied(cfg, pos, changed, err, out, errOut)
}

// UseCmd implements the use command.
type UseCmd struct{}

func (c *UseCmd) Name() string       { return "use" }
func (c *UseCmd) Aliases() []string  { return nil }
func (c *UseCmd) Synopsis() string   { return "Add a task from a saved task" }
func (c *UseCmd) Usage() string      { return "lockin use <n>" }
func (c *UseCmd) NeedsManager() bool { return true }

func (c *UseCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UseCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	pos, err := ParsePosition(args)
	if err != nil {
		return usageError(errOut, err)
	}
	s, err := savedAt(m, pos)
	if err != nil {
		return lookupFailed(errOut, err)
	}

	changed, err := m.UseSavedTask(s.FrontendKey)
	if err != nil {
		return storageFailed(errOut, err)
	}
	if !changed {
		return usageError(errOut, errors.New("saved task is not usable"))
	}
	return ok(cfg, out)
}
