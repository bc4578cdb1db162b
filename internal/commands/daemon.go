package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lockin/internal/config"
	"lockin/internal/daemon"
	"lockin/internal/exitcode"
	"lockin/internal/logging"
	"lockin/internal/manager"
)

func init() {
	Register(&DaemonCmd{})
}

// DaemonCmd implements the daemon command.
// It runs the sync loop until interrupted. SIGHUP triggers an immediate
// cycle, the way a network-up hook would.
type DaemonCmd struct {
	metricsAddr string
}

// SetMetricsAddr sets the metrics listen address (for testing).
func (c *DaemonCmd) SetMetricsAddr(addr string) {
	c.metricsAddr = addr
}

func (c *DaemonCmd) Name() string       { return "daemon" }
func (c *DaemonCmd) Aliases() []string  { return nil }
func (c *DaemonCmd) Synopsis() string   { return "Sync in the background" }
func (c *DaemonCmd) Usage() string      { return "lockin daemon [--metrics-addr <addr>]" }
func (c *DaemonCmd) NeedsManager() bool { return true }
func (c *DaemonCmd) LogLevel() string   { return string(logging.InfoLevel) }

func (c *DaemonCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.metricsAddr, "metrics-addr", "", "")
}

func (c *DaemonCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	log := logging.WithComponent("daemon")

	if !m.HasRemote() {
		log.Warn().Msg("not logged in, running local-only")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var srv *daemon.Server
	if c.metricsAddr != "" {
		srv = daemon.NewServer(m)
		if _, err := srv.Start(c.metricsAddr); err != nil {
			fmt.Fprintf(errOut, "error: metrics server: %v\n", err)
			return exitcode.UserError
		}
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				m.Online()
			}
		}
	}()

	if err := m.Run(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.StorageError
	}
	return exitcode.Success
}
