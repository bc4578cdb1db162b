package manager

import (
	"lockin/internal/service"
	"lockin/internal/store"
)

// AddSavedTask stores a new template. With a backend it is queued for
// upload.
func (m *Manager) AddSavedTask(name string, minutes int) (bool, error) {
	name, ok := validTask(name, minutes)
	if !ok {
		return false, nil
	}
	return m.update(func(tx *store.Tx, st *store.State) error {
		key := st.NextSavedKey
		st.NextSavedKey++
		st.SavedTasks = append(st.SavedTasks, service.SavedTask{
			BackendID:        service.UnassignedID,
			FrontendKey:      key,
			Name:             name,
			EstimatedMinutes: minutes,
		})
		return m.queueUpsert(tx, key)
	})
}

// EditSavedTask replaces a template's name and estimate.
func (m *Manager) EditSavedTask(frontendKey int64, name string, minutes int) (bool, error) {
	name, ok := validTask(name, minutes)
	if !ok {
		return false, nil
	}
	return m.update(func(tx *store.Tx, st *store.State) error {
		i := savedIndex(st.SavedTasks, frontendKey)
		if i < 0 {
			return errSkip
		}
		st.SavedTasks[i].Name = name
		st.SavedTasks[i].EstimatedMinutes = minutes
		return m.queueUpsert(tx, frontendKey)
	})
}

// DeleteSavedTask removes a template. A template the backend knows is
// queued for deletion; an upload still queued for it is dropped.
func (m *Manager) DeleteSavedTask(frontendKey int64) (bool, error) {
	return m.update(func(tx *store.Tx, st *store.State) error {
		i := savedIndex(st.SavedTasks, frontendKey)
		if i < 0 {
			return errSkip
		}
		s := st.SavedTasks[i]
		st.SavedTasks = append(st.SavedTasks[:i:i], st.SavedTasks[i+1:]...)
		return m.outbox.EnqueueDeleteTx(tx, service.ResourceSavedTasks, s.FrontendKey, s.BackendID)
	})
}

// UseSavedTask adds an ongoing task from the template.
func (m *Manager) UseSavedTask(frontendKey int64) (bool, error) {
	return m.update(func(tx *store.Tx, st *store.State) error {
		i := savedIndex(st.SavedTasks, frontendKey)
		if i < 0 {
			return errSkip
		}
		s := st.SavedTasks[i]
		if _, ok := validTask(s.Name, s.EstimatedMinutes); !ok {
			return errSkip
		}
		st.Tasks = append(st.Tasks, m.newTask(st, s.Name, s.EstimatedMinutes))
		Schedule(st.Tasks, m.now())
		return nil
	})
}

func (m *Manager) queueUpsert(tx *store.Tx, frontendKey int64) error {
	if m.remote == nil {
		return nil
	}
	return m.outbox.EnqueueUpsertTx(tx, service.ResourceSavedTasks, frontendKey)
}
