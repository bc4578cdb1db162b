package lockinapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"lockin/internal/service"
)

// flexInt accepts both JSON numbers and numeric strings; the backend has
// returned taskidbyfrontend in either form.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", data, err)
	}
	*f = flexInt(n)
	return nil
}

func (f flexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(f))
}

// wireTask is the backend representation of an ongoing task.
type wireTask struct {
	TaskID        *int64  `json:"taskid,omitempty"`
	FrontendKey   flexInt `json:"taskidbyfrontend"`
	Username      string  `json:"username,omitempty"`
	Name          string  `json:"name"`
	EstimatedTime int     `json:"estimated_time"`
	Completed     bool    `json:"completed,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// wireSavedTask is the backend representation of a saved task template.
type wireSavedTask struct {
	ID            *int64  `json:"id,omitempty"`
	Username      string  `json:"username"`
	Name          string  `json:"name"`
	EstimatedTime int     `json:"estimated_time"`
	FrontendKey   flexInt `json:"taskidbyfrontend"`
}

func toWireTask(t service.Task, username string) wireTask {
	return wireTask{
		FrontendKey:   flexInt(t.FrontendKey),
		Username:      username,
		Name:          t.Name,
		EstimatedTime: t.EstimatedMinutes,
	}
}

// fromWireTask maps a backend task to the local shape. The server id
// becomes the task ID; schedule times are left for the manager to compute.
func fromWireTask(w wireTask) service.Task {
	t := service.Task{
		FrontendKey:      int64(w.FrontendKey),
		Name:             w.Name,
		EstimatedMinutes: w.EstimatedTime,
	}
	if w.TaskID != nil {
		t.ID = *w.TaskID
	}
	return t
}

func toWireSavedTask(s service.SavedTask, username string) wireSavedTask {
	return wireSavedTask{
		Username:      username,
		Name:          s.Name,
		EstimatedTime: s.EstimatedMinutes,
		FrontendKey:   flexInt(s.FrontendKey),
	}
}

func fromWireSavedTask(w wireSavedTask) service.SavedTask {
	s := service.SavedTask{
		BackendID:        service.UnassignedID,
		FrontendKey:      int64(w.FrontendKey),
		Name:             w.Name,
		EstimatedMinutes: w.EstimatedTime,
	}
	if w.ID != nil {
		s.BackendID = *w.ID
	}
	return s
}
