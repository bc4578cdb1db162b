package manager

import (
	"strings"
	"time"

	"lockin/internal/service"
	"lockin/internal/store"
)

// Direction is the direction of a MoveTask.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection parses "up" or "down".
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case Up:
		return Up, true
	case Down:
		return Down, true
	}
	return "", false
}

// Schedule chains tasks from start: each task starts when the previous
// one completes and takes EstimatedMinutes.
func Schedule(tasks []service.Task, start time.Time) {
	current := start
	for i := range tasks {
		tasks[i].StartTime = current
		tasks[i].CompletionTime = current.Add(time.Duration(tasks[i].EstimatedMinutes) * time.Minute)
		current = tasks[i].CompletionTime
	}
}

func validTask(name string, minutes int) (string, bool) {
	name = strings.TrimSpace(name)
	return name, name != "" && minutes >= 1
}

// AddTask appends a task to the queue. An empty name or an estimate below
// one minute is ignored and reported as false.
func (m *Manager) AddTask(name string, minutes int) (bool, error) {
	name, ok := validTask(name, minutes)
	if !ok {
		return false, nil
	}
	return m.update(func(tx *store.Tx, st *store.State) error {
		st.Tasks = append(st.Tasks, m.newTask(st, name, minutes))
		Schedule(st.Tasks, m.now())
		return nil
	})
}

// newTask allocates a local id and a frontend key. The two come from
// separate counters: local ids stay below RemoteIDThreshold, while keys
// must also skip every key imported from the backend.
func (m *Manager) newTask(st *store.State, name string, minutes int) service.Task {
	id := st.NextID
	st.NextID++
	key := st.NextTaskKey
	st.NextTaskKey++
	return service.Task{
		ID:               id,
		FrontendKey:      key,
		Name:             name,
		EstimatedMinutes: minutes,
		NeedsSync:        true,
	}
}

// CompleteTask moves the task to the completed list stamped with the
// current time.
func (m *Manager) CompleteTask(id int64) (bool, error) {
	return m.update(func(tx *store.Tx, st *store.State) error {
		i := taskIndex(st.Tasks, id)
		if i < 0 {
			return errSkip
		}
		done := st.Tasks[i]
		done.CompletionTime = m.now()
		done.NeedsSync = false
		st.CompletedTasks = append(st.CompletedTasks, service.CompletedTask{Task: done})

		st.Tasks = append(st.Tasks[:i:i], st.Tasks[i+1:]...)
		Schedule(st.Tasks, m.now())
		return nil
	})
}

// DeleteTask removes the task. If the backend knows it, a delete is
// queued; the call itself never waits for the backend.
func (m *Manager) DeleteTask(id int64) (bool, error) {
	return m.update(func(tx *store.Tx, st *store.State) error {
		i := taskIndex(st.Tasks, id)
		if i < 0 {
			return errSkip
		}
		t := st.Tasks[i]
		st.Tasks = append(st.Tasks[:i:i], st.Tasks[i+1:]...)
		Schedule(st.Tasks, m.now())
		return m.queueTaskDelete(tx, t)
	})
}

// queueTaskDelete queues the remote delete even without a session, so the
// delete still reaches the backend after a later login.
func (m *Manager) queueTaskDelete(tx *store.Tx, t service.Task) error {
	if !t.HasRemoteID() {
		return nil
	}
	return m.outbox.EnqueueDeleteTx(tx, service.ResourceTasks, t.FrontendKey, t.ID)
}

// MoveTask swaps the task with its neighbour. Moving past either end of
// the queue does nothing.
func (m *Manager) MoveTask(id int64, dir Direction) (bool, error) {
	return m.update(func(tx *store.Tx, st *store.State) error {
		i := taskIndex(st.Tasks, id)
		if i < 0 {
			return errSkip
		}
		j := i - 1
		if dir == Down {
			j = i + 1
		}
		if j < 0 || j >= len(st.Tasks) {
			return errSkip
		}
		st.Tasks[i], st.Tasks[j] = st.Tasks[j], st.Tasks[i]
		Schedule(st.Tasks, m.now())
		return nil
	})
}

// EditTaskTime sets a new estimate. Estimates below one minute are ignored.
func (m *Manager) EditTaskTime(id int64, minutes int) (bool, error) {
	if minutes < 1 {
		return false, nil
	}
	return m.update(func(tx *store.Tx, st *store.State) error {
		i := taskIndex(st.Tasks, id)
		if i < 0 {
			return errSkip
		}
		st.Tasks[i].EstimatedMinutes = minutes
		st.Tasks[i].NeedsSync = true
		Schedule(st.Tasks, m.now())
		return nil
	})
}

// AdjustFirstTask adds delta minutes to the head of the queue. The result
// never drops below one minute.
func (m *Manager) AdjustFirstTask(delta int) (bool, error) {
	return m.update(func(tx *store.Tx, st *store.State) error {
		if len(st.Tasks) == 0 {
			return errSkip
		}
		head := &st.Tasks[0]
		head.EstimatedMinutes = max(head.EstimatedMinutes+delta, 1)
		head.NeedsSync = true
		Schedule(st.Tasks, m.now())
		return nil
	})
}

// Recompute re-chains the schedule starting now.
func (m *Manager) Recompute() error {
	_, err := m.update(func(tx *store.Tx, st *store.State) error {
		Schedule(st.Tasks, m.now())
		return nil
	})
	return err
}

// DeleteCompletedTask removes a completed task. Completed tasks are not
// synced, but if the backend still holds the task as ongoing its record
// is deleted so it cannot come back.
func (m *Manager) DeleteCompletedTask(id int64) (bool, error) {
	return m.update(func(tx *store.Tx, st *store.State) error {
		for i, c := range st.CompletedTasks {
			if c.ID == id {
				st.CompletedTasks = append(st.CompletedTasks[:i:i], st.CompletedTasks[i+1:]...)
				return m.queueTaskDelete(tx, c.Task)
			}
		}
		return errSkip
	})
}

// ClearCompleted removes every completed task.
func (m *Manager) ClearCompleted() (int, error) {
	var n int
	_, err := m.update(func(tx *store.Tx, st *store.State) error {
		n = len(st.CompletedTasks)
		if n == 0 {
			return errSkip
		}
		for _, c := range st.CompletedTasks {
			if err := m.queueTaskDelete(tx, c.Task); err != nil {
				return err
			}
		}
		st.CompletedTasks = nil
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
