package manager

import (
	"fmt"
	"time"

	"lockin/internal/metrics"
	"lockin/internal/store"
)

// Status is the state of synchronization with the backend.
type Status string

const (
	// StatusLocal means there is no session; state is kept locally only.
	StatusLocal Status = "local"
	// StatusSyncing means a cycle is running.
	StatusSyncing Status = "syncing"
	// StatusError means the last cycle failed.
	StatusError Status = "error"
	// StatusPending means the last cycle succeeded but local changes remain.
	StatusPending Status = "pending"
	// StatusSynced means nothing is waiting to be sent.
	StatusSynced Status = "synced"
)

// SyncStatus is the persisted outcome of the last sync cycle.
type SyncStatus struct {
	Status    Status    `json:"status"`
	LastSync  time.Time `json:"lastSync"`
	LastError string    `json:"lastError,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Report is SyncStatus plus what is still waiting to be sent.
type Report struct {
	SyncStatus
	DirtyTasks    int
	QueuedIntents int
}

// Status returns the current sync status.
func (m *Manager) Status() (Report, error) {
	var r Report
	if _, err := m.store.Get(store.KeySyncStatus, &r.SyncStatus); err != nil {
		return Report{}, fmt.Errorf("failed to load sync status: %w", err)
	}

	dirty, queued, err := m.backlog()
	if err != nil {
		return Report{}, err
	}
	r.DirtyTasks = dirty
	r.QueuedIntents = queued

	if m.remote == nil {
		r.Status = StatusLocal
	} else if r.Status == "" {
		r.Status = StatusPending
	}
	return r, nil
}

func (m *Manager) backlog() (dirty, queued int, err error) {
	tasks, err := m.Tasks()
	if err != nil {
		return 0, 0, err
	}
	for _, t := range tasks {
		if t.NeedsSync {
			dirty++
		}
	}
	queued, err = m.outbox.Len()
	if err != nil {
		return 0, 0, err
	}
	metrics.DirtyTasks.Set(float64(dirty))
	return dirty, queued, nil
}

func (m *Manager) setStatus(status Status) error {
	return m.store.Update(func(tx *store.Tx) error {
		var s SyncStatus
		if _, err := tx.Get(store.KeySyncStatus, &s); err != nil {
			return err
		}
		s.Status = status
		s.UpdatedAt = m.now()
		return tx.Put(store.KeySyncStatus, s)
	})
}

// finishStatus records the outcome of a cycle.
func (m *Manager) finishStatus(cycleErr error) error {
	dirty, queued, err := m.backlog()
	if err != nil {
		return err
	}
	return m.store.Update(func(tx *store.Tx) error {
		var s SyncStatus
		if _, err := tx.Get(store.KeySyncStatus, &s); err != nil {
			return err
		}
		now := m.now()
		s.UpdatedAt = now
		switch {
		case cycleErr != nil:
			s.Status = StatusError
			s.LastError = cycleErr.Error()
		case dirty > 0 || queued > 0:
			s.Status = StatusPending
			s.LastSync = now
			s.LastError = ""
		default:
			s.Status = StatusSynced
			s.LastSync = now
			s.LastError = ""
		}
		return tx.Put(store.KeySyncStatus, s)
	})
}
