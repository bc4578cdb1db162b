package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"lockin/internal/manager"
	"lockin/internal/service"
)

// ErrPositionRequired indicates no position argument was provided.
var ErrPositionRequired = errors.New("task number required")

// ParsePosition parses the 1-based position printed by the list commands.
func ParsePosition(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrPositionRequired
	}
	if !isAllDigits(args[0]) {
		return 0, fmt.Errorf("invalid task number: %s", args[0])
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid task number: %s", args[0])
	}
	return n, nil
}

// ParseMinutes parses a positive estimate in minutes.
func ParseMinutes(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid minutes: %s", s)
	}
	return n, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// taskAt returns the ongoing task at a 1-based position.
func taskAt(m *manager.Manager, pos int) (service.Task, error) {
	tasks, err := m.Tasks()
	if err != nil {
		return service.Task{}, err
	}
	if pos > len(tasks) {
		return service.Task{}, errNotFound(pos)
	}
	return tasks[pos-1], nil
}

// completedAt returns the completed task at a 1-based position.
func completedAt(m *manager.Manager, pos int) (service.CompletedTask, error) {
	tasks, err := m.CompletedTasks()
	if err != nil {
		return service.CompletedTask{}, err
	}
	if pos > len(tasks) {
		return service.CompletedTask{}, errNotFound(pos)
	}
	return tasks[pos-1], nil
}

// savedAt returns the saved task at a 1-based position.
func savedAt(m *manager.Manager, pos int) (service.SavedTask, error) {
	saved, err := m.SavedTasks()
	if err != nil {
		return service.SavedTask{}, err
	}
	if pos > len(saved) {
		return service.SavedTask{}, errNotFound(pos)
	}
	return saved[pos-1], nil
}

// notFoundError reports a position past the end of a list.
type notFoundError int

func errNotFound(pos int) error { return notFoundError(pos) }

func (e notFoundError) Error() string {
	return fmt.Sprintf("task not found: %d", int(e))
}
