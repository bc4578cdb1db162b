package manager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lockin/internal/store"
)

// LeaseTTL is how long a sync lease stays valid without renewal.
const LeaseTTL = time.Minute

// lease marks the process running a sync cycle, so a one-shot sync and a
// daemon never drain the outbox at the same time.
type lease struct {
	Holder  uuid.UUID `json:"holder"`
	Expires time.Time `json:"expires"`
}

func (m *Manager) acquireLease(holder uuid.UUID) (bool, error) {
	acquired := false
	err := m.store.Update(func(tx *store.Tx) error {
		var l lease
		if _, err := tx.Get(store.KeySyncLease, &l); err != nil {
			return err
		}
		now := time.Now()
		if l.Holder != uuid.Nil && l.Holder != holder && now.Before(l.Expires) {
			return nil
		}
		acquired = true
		return tx.Put(store.KeySyncLease, lease{Holder: holder, Expires: now.Add(LeaseTTL)})
	})
	return acquired, err
}

// keepLease renews the lease until ctx is done.
func (m *Manager) keepLease(ctx context.Context, holder uuid.UUID) {
	ticker := time.NewTicker(LeaseTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.acquireLease(holder); err != nil {
				m.log.Warn().Err(err).Msg("failed to renew sync lease")
			}
		}
	}
}

func (m *Manager) releaseLease(holder uuid.UUID) {
	err := m.store.Update(func(tx *store.Tx) error {
		var l lease
		if _, err := tx.Get(store.KeySyncLease, &l); err != nil {
			return err
		}
		if l.Holder != holder {
			return nil
		}
		return tx.Delete(store.KeySyncLease)
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to release sync lease")
	}
}
