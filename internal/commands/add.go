package commands

import (
	"context"
	"errors"
	"flag"
	"io"
	"strings"

	"lockin/internal/config"
	"lockin/internal/manager"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	save bool
}

// SetSave makes the command also keep the task as a template (for testing).
func (c *AddCmd) SetSave(save bool) {
	c.save = save
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Add a task to the end of the queue" }
func (c *AddCmd) Usage() string      { return "lockin add [--save] <minutes> <name...>" }
func (c *AddCmd) NeedsManager() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.save, "save", false, "")
	fs.BoolVar(&c.save, "s", false, "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	minutes, name, err := parseEstimateAndName(args)
	if err != nil {
		return usageError(errOut, err)
	}

	if _, err := m.AddTask(name, minutes); err != nil {
		return storageFailed(errOut, err)
	}
	if c.save {
		if _, err := m.AddSavedTask(name, minutes); err != nil {
			return storageFailed(errOut, err)
		}
	}
	return ok(cfg, out)
}

// parseEstimateAndName parses "<minutes> <name...>".
func parseEstimateAndName(args []string) (int, string, error) {
	if len(args) == 0 {
		return 0, "", errors.New("minutes required")
	}
	minutes, err := ParseMinutes(args[0])
	if err != nil {
		return 0, "", err
	}
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if name == "" {
		return 0, "", errors.New("name required")
	}
	return minutes, name, nil
}
