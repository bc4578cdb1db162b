// Package service defines the backend-agnostic interface for task operations.
package service

import "time"

// RemoteIDThreshold separates local ids from server-assigned task ids.
// A task whose ID is below it has probably not been created remotely yet.
const RemoteIDThreshold int64 = 1_000_000

// UnassignedID marks a saved task the server has not echoed an id for.
// Server ids are always >= 0.
const UnassignedID int64 = -1

// Task is an ongoing task in the ordered queue.
type Task struct {
	ID               int64     `json:"id"`
	FrontendKey      int64     `json:"frontendKey"`
	Name             string    `json:"name"`
	EstimatedMinutes int       `json:"estimatedTime"`
	StartTime        time.Time `json:"startTime"`
	CompletionTime   time.Time `json:"completionTime"`
	NeedsSync        bool      `json:"needsSync,omitempty"`
}

// HasRemoteID reports whether ID looks like a server-assigned id.
func (t Task) HasRemoteID() bool {
	return t.ID >= RemoteIDThreshold
}

// CompletedTask is a snapshot of a task taken when it was completed.
// CompletionTime is the actual moment of completion.
type CompletedTask struct {
	Task
}

// SavedTask is a reusable task template.
type SavedTask struct {
	BackendID        int64  `json:"id"`
	FrontendKey      int64  `json:"taskidbyfrontend"`
	Name             string `json:"name"`
	EstimatedMinutes int    `json:"estimatedTime"`
}

// HasBackendID reports whether the server has acknowledged this template.
func (s SavedTask) HasBackendID() bool {
	return s.BackendID >= 0
}

// Resource names a remote collection.
type Resource string

const (
	ResourceTasks      Resource = "tasks"
	ResourceSavedTasks Resource = "saved-tasks"
)
