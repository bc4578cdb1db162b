package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/manager"
)

// DefaultSyncTimeout bounds a one-shot sync.
const DefaultSyncTimeout = 30 * time.Second

func init() {
	Register(&SyncCmd{timeout: DefaultSyncTimeout})
	Register(&StatusCmd{})
}

// SyncCmd implements the sync command.
type SyncCmd struct {
	timeout time.Duration
}

// SetTimeout sets the cycle timeout (for testing).
func (c *SyncCmd) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *SyncCmd) Name() string       { return "sync" }
func (c *SyncCmd) Aliases() []string  { return nil }
func (c *SyncCmd) Synopsis() string   { return "Run one sync cycle" }
func (c *SyncCmd) Usage() string      { return "lockin sync [--timeout <duration>]" }
func (c *SyncCmd) NeedsManager() bool { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.DurationVar(&c.timeout, "timeout", DefaultSyncTimeout, "")
}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	if !m.HasRemote() {
		if err := m.SyncOnce(ctx); err != nil {
			return storageFailed(errOut, err)
		}
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in, changes are kept locally")
		}
		return exitcode.Success
	}

	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := m.SyncOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, manager.ErrSyncInProgress):
		fmt.Fprintln(errOut, "error: sync already in progress")
		return exitcode.UserError
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(errOut, "error: backend unreachable after %s, changes are kept for the next sync\n", timeout)
		return exitcode.StorageError
	default:
		fmt.Fprintf(errOut, "error: sync failed: %v\n", err)
		return exitcode.StorageError
	}

	return printStatus(cfg.Quiet, m, out, errOut)
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string       { return "status" }
func (c *StatusCmd) Aliases() []string  { return nil }
func (c *StatusCmd) Synopsis() string   { return "Show sync status" }
func (c *StatusCmd) Usage() string      { return "lockin status" }
func (c *StatusCmd) NeedsManager() bool { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	return printStatus(false, m, out, errOut)
}

// printStatus prints the sync report unless quiet.
func printStatus(quiet bool, m *manager.Manager, out, errOut io.Writer) int {
	report, err := m.Status()
	if err != nil {
		return storageFailed(errOut, err)
	}
	if quiet {
		return exitcode.Success
	}

	fmt.Fprintf(out, "status: %s\n", report.Status)
	if !report.LastSync.IsZero() {
		fmt.Fprintf(out, "last sync: %s\n", report.LastSync.Format(time.RFC3339))
	}
	if report.LastError != "" {
		fmt.Fprintf(out, "last error: %s\n", report.LastError)
	}
	fmt.Fprintf(out, "unsynced tasks: %d\n", report.DirtyTasks)
	fmt.Fprintf(out, "queued changes: %d\n", report.QueuedIntents)
	return exitcode.Success
}
