// Package manager owns the task queue, completed tasks and saved task
// templates, and runs sync cycles against the remote backend.
//
// The store is the source of truth. Every operation loads the state,
// changes it and writes it back in one transaction, so a CLI process and
// a running daemon never overwrite each other's edits.
package manager

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lockin/internal/logging"
	"lockin/internal/outbox"
	"lockin/internal/reconcile"
	"lockin/internal/retry"
	"lockin/internal/service"
	"lockin/internal/store"
)

// DefaultSyncInterval is the period of the background sync loop.
const DefaultSyncInterval = 5 * time.Second

// errSkip aborts an update without writing anything.
var errSkip = errors.New("skip")

// Options configures a Manager.
type Options struct {
	Store *store.Store

	// Remote is nil when there is no session; the manager is then local-only.
	Remote service.Remote

	Retry        *retry.Driver
	SyncInterval time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Manager is the task manager.
type Manager struct {
	store    *store.Store
	remote   service.Remote
	retry    *retry.Driver
	outbox   *outbox.Outbox
	engine   *reconcile.Engine
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger

	mu     sync.Mutex
	syncMu sync.Mutex
	online chan struct{}
}

// New creates a manager over opts.Store.
func New(opts Options) *Manager {
	m := &Manager{
		store:    opts.Store,
		remote:   opts.Remote,
		retry:    opts.Retry,
		interval: opts.SyncInterval,
		now:      opts.Now,
		log:      logging.WithComponent("manager"),
		online:   make(chan struct{}, 1),
	}
	if m.retry == nil {
		m.retry = retry.New(retry.DefaultDelay)
	}
	if m.interval <= 0 {
		m.interval = DefaultSyncInterval
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.outbox = outbox.New(m.store, m.remote, m.retry, m)
	if m.remote != nil {
		m.engine = reconcile.NewEngine(m.remote, m.store)
	}
	return m
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.now()
}

// HasRemote reports whether a remote backend is configured.
func (m *Manager) HasRemote() bool {
	return m.remote != nil
}

// update runs fn on the current state inside one store transaction and
// writes the state back. fn returns errSkip to leave everything unchanged.
func (m *Manager) update(fn func(tx *store.Tx, st *store.State) error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.store.Update(func(tx *store.Tx) error {
		st, err := tx.State()
		if err != nil {
			return err
		}
		if err := fn(tx, &st); err != nil {
			return err
		}
		if err := tx.PutState(st); err != nil {
			return fmt.Errorf("failed to save state: %w", err)
		}
		return nil
	})
	if errors.Is(err, errSkip) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) state() (store.State, error) {
	st, err := m.store.LoadState()
	if err != nil {
		return store.State{}, fmt.Errorf("failed to load state: %w", err)
	}
	return st, nil
}

// Tasks returns the ongoing tasks in queue order.
func (m *Manager) Tasks() ([]service.Task, error) {
	st, err := m.state()
	return st.Tasks, err
}

// CompletedTasks returns the completed tasks, oldest first.
func (m *Manager) CompletedTasks() ([]service.CompletedTask, error) {
	st, err := m.state()
	return st.CompletedTasks, err
}

// SavedTasks returns the saved task templates.
func (m *Manager) SavedTasks() ([]service.SavedTask, error) {
	st, err := m.state()
	return st.SavedTasks, err
}

// ResolveSavedTask implements outbox.Resolver.
func (m *Manager) ResolveSavedTask(frontendKey int64) (service.SavedTask, bool, error) {
	st, err := m.state()
	if err != nil {
		return service.SavedTask{}, false, err
	}
	if i := savedIndex(st.SavedTasks, frontendKey); i >= 0 {
		return st.SavedTasks[i], true, nil
	}
	return service.SavedTask{}, false, nil
}

// SavedTaskSynced implements outbox.Resolver.
func (m *Manager) SavedTaskSynced(frontendKey, backendID int64) (bool, error) {
	return m.update(func(tx *store.Tx, st *store.State) error {
		i := savedIndex(st.SavedTasks, frontendKey)
		if i < 0 {
			return errSkip
		}
		st.SavedTasks[i].BackendID = backendID
		return nil
	})
}

func taskIndex(tasks []service.Task, id int64) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func taskIndexByKey(tasks []service.Task, frontendKey int64) int {
	for i, t := range tasks {
		if t.FrontendKey == frontendKey {
			return i
		}
	}
	return -1
}

func savedIndex(saved []service.SavedTask, frontendKey int64) int {
	for i, s := range saved {
		if s.FrontendKey == frontendKey {
			return i
		}
	}
	return -1
}
