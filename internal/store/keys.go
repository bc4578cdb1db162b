package store

import "lockin/internal/service"

// Keys of the persisted local state.
const (
	KeyTasks            = "tasks"
	KeyCompletedTasks   = "completedTasks"
	KeyNextID           = "nextId"
	KeyNextTaskKey      = "nextTaskFrontendId"
	KeySavedTasks       = "savedTasks"
	KeyNextSavedKey     = "nextSavedTaskFrontendId"
	KeyPendingDeletions = "deletedTaskIds"
	KeyOutbox           = "outbox"
	KeySyncStatus       = "syncStatus"
	KeySyncLease        = "syncLease"
)

// State is the full local state owned by the task manager.
type State struct {
	Tasks          []service.Task
	CompletedTasks []service.CompletedTask
	NextID         int64
	NextTaskKey    int64
	SavedTasks     []service.SavedTask
	NextSavedKey   int64
}

// ReserveKeys moves the frontend key counters past every key held by a
// task, completed task or saved task, so new records never reuse the key
// of an imported one.
func (st *State) ReserveKeys() {
	for _, t := range st.Tasks {
		st.NextTaskKey = max(st.NextTaskKey, t.FrontendKey+1)
	}
	for _, c := range st.CompletedTasks {
		st.NextTaskKey = max(st.NextTaskKey, c.FrontendKey+1)
	}
	for _, s := range st.SavedTasks {
		st.NextSavedKey = max(st.NextSavedKey, s.FrontendKey+1)
	}
}

// LoadState reads all manager-owned keys in one transaction.
// Counters start at 1 when never written. A store written before task keys
// had their own counter continues from NextID.
func (s *Store) LoadState() (State, error) {
	var st State
	err := s.View(func(tx *Tx) error {
		var err error
		st, err = tx.State()
		return err
	})
	return st, err
}

// State reads all manager-owned keys.
func (t *Tx) State() (State, error) {
	st := State{NextID: 1, NextTaskKey: 1, NextSavedKey: 1}
	if _, err := t.Get(KeyTasks, &st.Tasks); err != nil {
		return State{}, err
	}
	if _, err := t.Get(KeyCompletedTasks, &st.CompletedTasks); err != nil {
		return State{}, err
	}
	if _, err := t.Get(KeyNextID, &st.NextID); err != nil {
		return State{}, err
	}
	found, err := t.Get(KeyNextTaskKey, &st.NextTaskKey)
	if err != nil {
		return State{}, err
	}
	if !found {
		st.NextTaskKey = st.NextID
	}
	if _, err := t.Get(KeySavedTasks, &st.SavedTasks); err != nil {
		return State{}, err
	}
	if _, err := t.Get(KeyNextSavedKey, &st.NextSavedKey); err != nil {
		return State{}, err
	}
	return st, nil
}

// PutState writes all manager-owned keys.
func (t *Tx) PutState(st State) error {
	values := []struct {
		key string
		v   any
	}{
		{KeyTasks, st.Tasks},
		{KeyCompletedTasks, st.CompletedTasks},
		{KeyNextID, st.NextID},
		{KeyNextTaskKey, st.NextTaskKey},
		{KeySavedTasks, st.SavedTasks},
		{KeyNextSavedKey, st.NextSavedKey},
	}
	for _, kv := range values {
		if err := t.Put(kv.key, kv.v); err != nil {
			return err
		}
	}
	return nil
}

// PendingDeletions is the set of backend ids whose delete has not reached
// the backend yet, per resource.
type PendingDeletions struct {
	Tasks      []int64 `json:"tasks"`
	SavedTasks []int64 `json:"savedTasks"`
}

// IDs returns the pending ids for a resource as a lookup set.
func (p PendingDeletions) IDs(res service.Resource) map[int64]bool {
	src := p.Tasks
	if res == service.ResourceSavedTasks {
		src = p.SavedTasks
	}
	set := make(map[int64]bool, len(src))
	for _, id := range src {
		set[id] = true
	}
	return set
}

// Add records id as pending for res. Adding an id twice is a no-op.
func (p *PendingDeletions) Add(res service.Resource, id int64) {
	list := p.list(res)
	for _, existing := range *list {
		if existing == id {
			return
		}
	}
	*list = append(*list, id)
}

// Remove drops id from the pending set for res.
func (p *PendingDeletions) Remove(res service.Resource, id int64) {
	list := p.list(res)
	kept := (*list)[:0]
	for _, existing := range *list {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	*list = kept
}

func (p *PendingDeletions) list(res service.Resource) *[]int64 {
	if res == service.ResourceSavedTasks {
		return &p.SavedTasks
	}
	return &p.Tasks
}

// LoadPendingDeletions reads the pending deletion set.
func (s *Store) LoadPendingDeletions() (PendingDeletions, error) {
	var p PendingDeletions
	_, err := s.Get(KeyPendingDeletions, &p)
	return p, err
}

// PendingDeletions reads the pending deletion set.
func (t *Tx) PendingDeletions() (PendingDeletions, error) {
	var p PendingDeletions
	_, err := t.Get(KeyPendingDeletions, &p)
	return p, err
}
