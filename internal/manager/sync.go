package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lockin/internal/metrics"
	"lockin/internal/reconcile"
	"lockin/internal/retry"
	"lockin/internal/service"
	"lockin/internal/store"
)

// ErrSyncInProgress is returned when another cycle is already running.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncOnce runs one sync cycle: drain the outbox, push dirty tasks, then
// fetch and merge both remote collections. Without a backend it only
// records the local status. A cycle already running in this or another
// process makes it return ErrSyncInProgress.
func (m *Manager) SyncOnce(ctx context.Context) error {
	if m.remote == nil {
		return m.setStatus(StatusLocal)
	}

	if !m.syncMu.TryLock() {
		return ErrSyncInProgress
	}
	defer m.syncMu.Unlock()

	holder := uuid.New()
	ok, err := m.acquireLease(holder)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSyncInProgress
	}
	leaseCtx, stopLease := context.WithCancel(context.Background())
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		m.keepLease(leaseCtx, holder)
	}()
	defer func() {
		stopLease()
		<-renewed
		m.releaseLease(holder)
	}()

	if err := m.setStatus(StatusSyncing); err != nil {
		return err
	}

	timer := metrics.NewTimer()
	err = m.cycle(ctx)
	timer.ObserveDuration(metrics.SyncDuration)
	metrics.SyncCyclesTotal.Inc()

	if err != nil {
		metrics.SyncErrorsTotal.Inc()
		m.log.Warn().Err(err).Msg("sync cycle failed")
	} else {
		m.log.Debug().Dur("duration", timer.Duration()).Msg("sync cycle finished")
	}

	if serr := m.finishStatus(err); serr != nil && err == nil {
		return serr
	}
	return err
}

func (m *Manager) cycle(ctx context.Context) error {
	if err := m.outbox.Drain(ctx); err != nil {
		return fmt.Errorf("failed to drain outbox: %w", err)
	}
	if err := m.SyncTasks(ctx); err != nil {
		return err
	}
	snap, err := m.engine.Fetch(ctx)
	if err != nil {
		return err
	}
	return m.applySnapshot(snap)
}

// SyncTasks pushes every dirty task: tasks without a server id are
// created, the others updated, each through the retry driver. The dirty
// flags of the batch are cleared only after every call succeeded; a task
// edited again meanwhile stays dirty.
func (m *Manager) SyncTasks(ctx context.Context) error {
	if m.remote == nil {
		return nil
	}

	tasks, err := m.Tasks()
	if err != nil {
		return err
	}
	var batch []service.Task
	for _, t := range tasks {
		if t.NeedsSync {
			batch = append(batch, t)
		}
	}
	if len(batch) == 0 {
		return nil
	}

	for _, t := range batch {
		if t.HasRemoteID() {
			_, err := retry.Do(ctx, m.retry, "update-task", func(ctx context.Context) (*service.Task, error) {
				return m.remote.UpdateTask(ctx, t.ID, t)
			})
			if err != nil {
				return fmt.Errorf("failed to update task %d: %w", t.ID, err)
			}
			continue
		}

		created, err := retry.Do(ctx, m.retry, "create-task", func(ctx context.Context) (*service.Task, error) {
			return m.remote.CreateTask(ctx, t)
		})
		if err != nil {
			return fmt.Errorf("failed to create task %d: %w", t.ID, err)
		}
		if err := m.adoptCreated(t.FrontendKey, created); err != nil {
			return err
		}
	}

	_, err = m.update(func(tx *store.Tx, st *store.State) error {
		for _, pushed := range batch {
			i := taskIndexByKey(st.Tasks, pushed.FrontendKey)
			if i < 0 {
				continue
			}
			cur := &st.Tasks[i]
			if cur.Name == pushed.Name && cur.EstimatedMinutes == pushed.EstimatedMinutes {
				cur.NeedsSync = false
			}
		}
		return nil
	})
	m.log.Debug().Int("tasks", len(batch)).Msg("pushed dirty tasks")
	return err
}

// adoptCreated stores the server id of a freshly created task. If the
// task was deleted while the create was in flight, the new remote record
// is queued for deletion.
func (m *Manager) adoptCreated(frontendKey int64, created *service.Task) error {
	if !created.HasRemoteID() {
		return nil
	}
	_, err := m.update(func(tx *store.Tx, st *store.State) error {
		if i := taskIndexByKey(st.Tasks, frontendKey); i >= 0 {
			if !st.Tasks[i].HasRemoteID() {
				st.Tasks[i].ID = created.ID
			}
			return nil
		}
		for i := range st.CompletedTasks {
			if st.CompletedTasks[i].FrontendKey == frontendKey {
				st.CompletedTasks[i].ID = created.ID
				return nil
			}
		}
		return m.outbox.EnqueueDeleteTx(tx, service.ResourceTasks, frontendKey, created.ID)
	})
	return err
}

// applySnapshot merges a fetched remote snapshot into the current local
// state. Deletions queued since the fetch are filtered again.
func (m *Manager) applySnapshot(snap *reconcile.Snapshot) error {
	_, err := m.update(func(tx *store.Tx, st *store.State) error {
		pending, err := tx.PendingDeletions()
		if err != nil {
			return err
		}
		remoteSaved := reconcile.FilterPending(snap.SavedTasks,
			func(s service.SavedTask) int64 { return s.BackendID },
			pending.IDs(service.ResourceSavedTasks))
		remoteTasks := reconcile.FilterPending(snap.Tasks,
			func(t service.Task) int64 { return t.ID },
			pending.IDs(service.ResourceTasks))
		remoteTasks = withoutCompleted(remoteTasks, st.CompletedTasks)

		queued, err := m.outbox.QueuedUpserts(tx, service.ResourceSavedTasks)
		if err != nil {
			return err
		}
		saved := reconcile.Merge(st.SavedTasks, remoteSaved, reconcile.SavedTaskPolicy(func(fk int64) bool {
			return queued[fk]
		}))
		st.SavedTasks = saved.Merged
		for _, fk := range saved.Unmatched {
			// gone remotely or never uploaded: upload as new
			st.SavedTasks[savedIndex(st.SavedTasks, fk)].BackendID = service.UnassignedID
			if queued[fk] {
				continue
			}
			if err := m.outbox.EnqueueUpsertTx(tx, service.ResourceSavedTasks, fk); err != nil {
				return err
			}
		}

		nextID := func() int64 {
			id := st.NextID
			st.NextID++
			return id
		}
		tasks := reconcile.Merge(st.Tasks, remoteTasks, reconcile.TaskPolicy(nextID))
		st.Tasks = tasks.Merged
		for _, fk := range tasks.Unmatched {
			t := &st.Tasks[taskIndexByKey(st.Tasks, fk)]
			if t.HasRemoteID() {
				t.ID = nextID()
			}
			t.NeedsSync = true
		}
		st.ReserveKeys()

		start := m.now()
		if len(st.Tasks) > 0 && !st.Tasks[0].StartTime.IsZero() {
			start = st.Tasks[0].StartTime
		}
		Schedule(st.Tasks, start)

		m.log.Debug().
			Int("savedImported", saved.Imported).
			Int("savedUnmatched", len(saved.Unmatched)).
			Int("tasksImported", tasks.Imported).
			Int("tasksUnmatched", len(tasks.Unmatched)).
			Msg("merged remote state")
		return nil
	})
	return err
}

func withoutCompleted(remote []service.Task, completed []service.CompletedTask) []service.Task {
	if len(completed) == 0 {
		return remote
	}
	done := make(map[int64]bool, len(completed))
	for _, c := range completed {
		done[c.FrontendKey] = true
	}
	kept := make([]service.Task, 0, len(remote))
	for _, t := range remote {
		if !done[t.FrontendKey] {
			kept = append(kept, t)
		}
	}
	return kept
}
