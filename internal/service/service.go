// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every failed remote call. Transport failures and
// non-2xx responses are not distinguished.
var ErrUnavailable = errors.New("backend unavailable")

// Remote defines the interface for the task backend.
// All REST calls go through this interface.
// The manager and commands never import the HTTP client directly.
type Remote interface {
	// ListTasks returns all ongoing tasks stored remotely.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns it with its server id.
	CreateTask(ctx context.Context, task Task) (*Task, error)

	// UpdateTask replaces the name and estimate of the task with the given server id.
	UpdateTask(ctx context.Context, id int64, task Task) (*Task, error)

	// DeleteTask deletes the task with the given server id.
	// Deleting a task that no longer exists succeeds.
	DeleteTask(ctx context.Context, id int64) error

	// ListSavedTasks returns all saved task templates stored remotely.
	ListSavedTasks(ctx context.Context) ([]SavedTask, error)

	// CreateSavedTask creates a template and returns it with its server id.
	CreateSavedTask(ctx context.Context, task SavedTask) (*SavedTask, error)

	// UpdateSavedTask replaces the template with the given server id.
	UpdateSavedTask(ctx context.Context, id int64, task SavedTask) (*SavedTask, error)

	// DeleteSavedTask deletes the template with the given server id.
	DeleteSavedTask(ctx context.Context, id int64) error
}
