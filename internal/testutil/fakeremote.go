// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"lockin/internal/service"
)

// FakeRemote is an in-memory implementation of service.Remote for testing.
// Server ids for tasks start at service.RemoteIDThreshold and ids for saved
// tasks start at 1, like the real backend.
type FakeRemote struct {
	mu          sync.Mutex
	tasks       []service.Task
	saved       []service.SavedTask
	nextTaskID  int64
	nextSavedID int64
	offline     bool
	failNext    map[string]int
	calls       map[string]int

	// OnCall, if set, runs before every call with the operation name.
	OnCall func(op string)
}

// Operation names used by CallCount and FailNext.
const (
	OpListTasks       = "ListTasks"
	OpCreateTask      = "CreateTask"
	OpUpdateTask      = "UpdateTask"
	OpDeleteTask      = "DeleteTask"
	OpListSavedTasks  = "ListSavedTasks"
	OpCreateSavedTask = "CreateSavedTask"
	OpUpdateSavedTask = "UpdateSavedTask"
	OpDeleteSavedTask = "DeleteSavedTask"
)

// NewFakeRemote creates an empty, online FakeRemote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		nextTaskID:  service.RemoteIDThreshold,
		nextSavedID: 1,
		failNext:    make(map[string]int),
		calls:       make(map[string]int),
	}
}

// SetOffline makes every call fail with service.ErrUnavailable while set.
func (f *FakeRemote) SetOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

// FailNext makes the next n calls of op fail.
func (f *FakeRemote) FailNext(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext[op] = n
}

// CallCount returns how many times op has been called, failures included.
func (f *FakeRemote) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// AddTask stores a task as if it had been created earlier. Returns its server id.
func (f *FakeRemote) AddTask(frontendKey int64, name string, minutes int) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextTaskID
	f.nextTaskID++
	f.tasks = append(f.tasks, service.Task{ID: id, FrontendKey: frontendKey, Name: name, EstimatedMinutes: minutes})
	return id
}

// AddSavedTask stores a template as if it had been created earlier. Returns its server id.
func (f *FakeRemote) AddSavedTask(frontendKey int64, name string, minutes int) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSavedID
	f.nextSavedID++
	f.saved = append(f.saved, service.SavedTask{BackendID: id, FrontendKey: frontendKey, Name: name, EstimatedMinutes: minutes})
	return id
}

// Tasks returns a copy of the stored tasks.
func (f *FakeRemote) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Task(nil), f.tasks...)
}

// SavedTasks returns a copy of the stored templates.
func (f *FakeRemote) SavedTasks() []service.SavedTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.SavedTask(nil), f.saved...)
}

// begin records a call and reports whether it should fail. Caller holds no lock.
func (f *FakeRemote) begin(op string) error {
	if f.OnCall != nil {
		f.OnCall(op)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.offline {
		return fmt.Errorf("%w: %s: offline", service.ErrUnavailable, op)
	}
	if f.failNext[op] > 0 {
		f.failNext[op]--
		return fmt.Errorf("%w: %s: injected failure", service.ErrUnavailable, op)
	}
	return nil
}

// ListTasks implements service.Remote.
func (f *FakeRemote) ListTasks(ctx context.Context) ([]service.Task, error) {
	if err := f.begin(OpListTasks); err != nil {
		return nil, err
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Remote.
func (f *FakeRemote) CreateTask(ctx context.Context, task service.Task) (*service.Task, error) {
	if err := f.begin(OpCreateTask); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	created := service.Task{
		ID:               f.nextTaskID,
		FrontendKey:      task.FrontendKey,
		Name:             task.Name,
		EstimatedMinutes: task.EstimatedMinutes,
	}
	f.nextTaskID++
	f.tasks = append(f.tasks, created)
	return &created, nil
}

// UpdateTask implements service.Remote.
func (f *FakeRemote) UpdateTask(ctx context.Context, id int64, task service.Task) (*service.Task, error) {
	if err := f.begin(OpUpdateTask); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Name = task.Name
			f.tasks[i].EstimatedMinutes = task.EstimatedMinutes
			updated := f.tasks[i]
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("%w: task %d not found", service.ErrUnavailable, id)
}

// DeleteTask implements service.Remote.
func (f *FakeRemote) DeleteTask(ctx context.Context, id int64) error {
	if err := f.begin(OpDeleteTask); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			break
		}
	}
	return nil
}

// ListSavedTasks implements service.Remote.
func (f *FakeRemote) ListSavedTasks(ctx context.Context) ([]service.SavedTask, error) {
	if err := f.begin(OpListSavedTasks); err != nil {
		return nil, err
	}
	return f.SavedTasks(), nil
}

// CreateSavedTask implements service.Remote.
func (f *FakeRemote) CreateSavedTask(ctx context.Context, task service.SavedTask) (*service.SavedTask, error) {
	if err := f.begin(OpCreateSavedTask); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	created := service.SavedTask{
		BackendID:        f.nextSavedID,
		FrontendKey:      task.FrontendKey,
		Name:             task.Name,
		EstimatedMinutes: task.EstimatedMinutes,
	}
	f.nextSavedID++
	f.saved = append(f.saved, created)
	return &created, nil
}

// UpdateSavedTask implements service.Remote.
func (f *FakeRemote) UpdateSavedTask(ctx context.Context, id int64, task service.SavedTask) (*service.SavedTask, error) {
	if err := f.begin(OpUpdateSavedTask); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.saved {
		if f.saved[i].BackendID == id {
			f.saved[i].Name = task.Name
			f.saved[i].EstimatedMinutes = task.EstimatedMinutes
			updated := f.saved[i]
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("%w: saved task %d not found", service.ErrUnavailable, id)
}

// DeleteSavedTask implements service.Remote.
func (f *FakeRemote) DeleteSavedTask(ctx context.Context, id int64) error {
	if err := f.begin(OpDeleteSavedTask); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.saved {
		if f.saved[i].BackendID == id {
			f.saved = append(f.saved[:i], f.saved[i+1:]...)
			break
		}
	}
	return nil
}
