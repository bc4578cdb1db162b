package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"lockin/internal/logging"
	"lockin/internal/service"
	"lockin/internal/store"
)

// Snapshot is the remote state with pending deletions filtered out.
type Snapshot struct {
	Tasks      []service.Task
	SavedTasks []service.SavedTask
}

// Engine fetches remote collections for merging.
type Engine struct {
	remote service.Remote
	store  *store.Store
	log    zerolog.Logger
}

// NewEngine creates an engine reading pending deletions from st.
func NewEngine(remote service.Remote, st *store.Store) *Engine {
	return &Engine{
		remote: remote,
		store:  st,
		log:    logging.WithComponent("reconcile"),
	}
}

// Fetch lists both remote collections once, without retrying. A failure
// means this cycle skips the merge.
//
// The pending set is read before and after the fetch: an id acknowledged
// while the lists were in flight may still be in them.
func (e *Engine) Fetch(ctx context.Context) (*Snapshot, error) {
	before, err := e.store.LoadPendingDeletions()
	if err != nil {
		return nil, err
	}

	saved, err := e.remote.ListSavedTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saved tasks: %w", err)
	}
	tasks, err := e.remote.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	after, err := e.store.LoadPendingDeletions()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		SavedTasks: FilterPending(saved, func(s service.SavedTask) int64 { return s.BackendID }, union(before, after, service.ResourceSavedTasks)),
		Tasks:      FilterPending(tasks, func(t service.Task) int64 { return t.ID }, union(before, after, service.ResourceTasks)),
	}
	e.log.Debug().
		Int("savedTasks", len(snap.SavedTasks)).
		Int("savedTasksPending", len(saved)-len(snap.SavedTasks)).
		Int("tasks", len(snap.Tasks)).
		Int("tasksPending", len(tasks)-len(snap.Tasks)).
		Msg("fetched remote state")
	return snap, nil
}

func union(a, b store.PendingDeletions, res service.Resource) map[int64]bool {
	set := a.IDs(res)
	for id := range b.IDs(res) {
		set[id] = true
	}
	return set
}
