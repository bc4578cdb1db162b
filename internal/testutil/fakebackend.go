package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"lockin/internal/service"
)

// FakeBackend serves the lockin REST API over a FakeRemote.
// Every call the FakeRemote fails is answered with 503.
type FakeBackend struct {
	*httptest.Server
	Remote *FakeRemote

	mu       sync.Mutex
	auth     []string
	requests []string
}

type backendTask struct {
	TaskID        int64  `json:"taskid"`
	FrontendKey   int64  `json:"taskidbyfrontend"`
	Username      string `json:"username,omitempty"`
	Name          string `json:"name"`
	EstimatedTime int    `json:"estimated_time"`
}

type backendSavedTask struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	EstimatedTime int    `json:"estimated_time"`
	FrontendKey   int64  `json:"taskidbyfrontend"`
}

// NewFakeBackend starts a server over remote. It is closed when the test ends.
func NewFakeBackend(t *testing.T, remote *FakeRemote) *FakeBackend {
	t.Helper()

	b := &FakeBackend{Remote: remote}

	r := mux.NewRouter()
	r.Use(b.record)
	r.HandleFunc("/tasks", b.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", b.createTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", b.updateTask).Methods(http.MethodPut)
	r.HandleFunc("/tasks/{id}", b.deleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/saved-tasks", b.listSavedTasks).Methods(http.MethodGet)
	r.HandleFunc("/saved-tasks", b.createSavedTask).Methods(http.MethodPost)
	r.HandleFunc("/saved-tasks/{id}", b.updateSavedTask).Methods(http.MethodPut)
	r.HandleFunc("/saved-tasks/{id}", b.deleteSavedTask).Methods(http.MethodDelete)

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Close)
	return b
}

// AuthHeaders returns the Authorization header of every request received.
func (b *FakeBackend) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.auth...)
}

// Requests returns "METHOD /path" for every request received.
func (b *FakeBackend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := b.Remote.ListTasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]backendTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, backendTask{TaskID: t.ID, FrontendKey: t.FrontendKey, Name: t.Name, EstimatedTime: t.EstimatedMinutes})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) createTask(w http.ResponseWriter, r *http.Request) {
	var in backendTask
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := b.Remote.CreateTask(r.Context(), service.Task{FrontendKey: in.FrontendKey, Name: in.Name, EstimatedMinutes: in.EstimatedTime})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, backendTask{TaskID: created.ID, FrontendKey: created.FrontendKey, Username: in.Username, Name: created.Name, EstimatedTime: created.EstimatedMinutes})
}

func (b *FakeBackend) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in backendTask
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := b.Remote.UpdateTask(r.Context(), id, service.Task{FrontendKey: in.FrontendKey, Name: in.Name, EstimatedMinutes: in.EstimatedTime})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backendTask{TaskID: updated.ID, FrontendKey: updated.FrontendKey, Name: updated.Name, EstimatedTime: updated.EstimatedMinutes})
}

func (b *FakeBackend) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	found := false
	for _, t := range b.Remote.Tasks() {
		if t.ID == id {
			found = true
		}
	}
	if err := b.Remote.DeleteTask(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *FakeBackend) listSavedTasks(w http.ResponseWriter, r *http.Request) {
	saved, err := b.Remote.ListSavedTasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]backendSavedTask, 0, len(saved))
	for _, s := range saved {
		out = append(out, backendSavedTask{ID: s.BackendID, FrontendKey: s.FrontendKey, Name: s.Name, EstimatedTime: s.EstimatedMinutes})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) createSavedTask(w http.ResponseWriter, r *http.Request) {
	var in backendSavedTask
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := b.Remote.CreateSavedTask(r.Context(), service.SavedTask{FrontendKey: in.FrontendKey, Name: in.Name, EstimatedMinutes: in.EstimatedTime})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, backendSavedTask{ID: created.BackendID, Username: in.Username, Name: created.Name, EstimatedTime: created.EstimatedMinutes, FrontendKey: created.FrontendKey})
}

func (b *FakeBackend) updateSavedTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in backendSavedTask
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := b.Remote.UpdateSavedTask(r.Context(), id, service.SavedTask{FrontendKey: in.FrontendKey, Name: in.Name, EstimatedMinutes: in.EstimatedTime})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backendSavedTask{ID: updated.BackendID, Username: in.Username, Name: updated.Name, EstimatedTime: updated.EstimatedMinutes, FrontendKey: updated.FrontendKey})
}

func (b *FakeBackend) deleteSavedTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	found := false
	for _, s := range b.Remote.SavedTasks() {
		if s.BackendID == id {
			found = true
		}
	}
	if err := b.Remote.DeleteSavedTask(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "saved task not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUnavailable) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
