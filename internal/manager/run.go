package manager

import (
	"context"
	"errors"
	"time"
)

// Run syncs every SyncInterval and whenever Online is called, until ctx
// is done. It fails only when the local state cannot be read at start;
// errors of individual cycles are logged and retried on the next tick.
func (m *Manager) Run(ctx context.Context) error {
	if _, err := m.state(); err != nil {
		return err
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info().Dur("interval", m.interval).Bool("remote", m.remote != nil).Msg("sync loop started")
	m.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("sync loop stopped")
			return nil
		case <-ticker.C:
			m.runCycle(ctx)
		case <-m.online:
			m.log.Debug().Msg("online trigger")
			m.runCycle(ctx)
		}
	}
}

// Online asks Run to start a cycle now. Calls made while a trigger is
// already waiting are collapsed.
func (m *Manager) Online() {
	select {
	case m.online <- struct{}{}:
	default:
	}
}

func (m *Manager) runCycle(ctx context.Context) {
	err := m.SyncOnce(ctx)
	switch {
	case err == nil, ctx.Err() != nil:
	case errors.Is(err, ErrSyncInProgress):
		m.log.Debug().Msg("sync skipped, another cycle is running")
	default:
		m.log.Debug().Err(err).Msg("sync cycle ended with error")
	}
}
