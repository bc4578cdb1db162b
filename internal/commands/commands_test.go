package commands_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lockin/internal/commands"
	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/manager"
	"lockin/internal/retry"
	"lockin/internal/service"
	"lockin/internal/store"
	"lockin/internal/testutil"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// newManager creates a manager over a fresh store with the clock frozen at t0.
// A nil remote gives a local-only manager.
func newManager(t *testing.T, remote *testutil.FakeRemote) *manager.Manager {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "lockin.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	opts := manager.Options{
		Store: st,
		Retry: retry.New(time.Millisecond),
		Now:   func() time.Time { return t0 },
	}
	if remote != nil {
		opts.Remote = remote
	}
	return manager.New(opts)
}

// runCommand is a helper to run a command against a manager.
func runCommand(t *testing.T, cmd commands.Command, m *manager.Manager, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cfg := &config.Config{
		Dir:   t.TempDir(),
		Quiet: quiet,
	}

	ctx := context.Background()
	code = cmd.Run(ctx, cfg, m, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func addTask(t *testing.T, m *manager.Manager, name string, minutes int) {
	t.Helper()
	if ok, err := m.AddTask(name, minutes); err != nil || !ok {
		t.Fatalf("failed to add task %q: ok=%v err=%v", name, ok, err)
	}
}

func tasks(t *testing.T, m *manager.Manager) []service.Task {
	t.Helper()
	tasks, err := m.Tasks()
	if err != nil {
		t.Fatalf("failed to load tasks: %v", err)
	}
	return tasks
}

func saved(t *testing.T, m *manager.Manager) []service.SavedTask {
	t.Helper()
	saved, err := m.SavedTasks()
	if err != nil {
		t.Fatalf("failed to load saved tasks: %v", err)
	}
	return saved
}

func expectSuccess(t *testing.T, stdout, stderr string, code int) {
	t.Helper()
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok', got %q", stdout)
	}
}

func expectUserError(t *testing.T, stderr string, code int, want string) {
	t.Helper()
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != want {
		t.Errorf("expected %q, got %q", want, stderr)
	}
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "lockin 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "help", stdout)
}

// Tests for list command
func TestListCommand_WithTasks(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "Write report", 90)
	addTask(t, m, "Review", 120)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, m, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	expected := "   1  Write report  [1 H:30 M]  09:00-10:30\n" +
		"   2  Review  [2 H]  10:30-12:30\n" +
		"time left: 1 H:30 M\n" +
		"total: 3 H:30 M\n"
	if stdout != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	m := newManager(t, nil)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, m, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "no tasks\n" {
		t.Errorf("expected 'no tasks', got %q", stdout)
	}
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	m := newManager(t, nil)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, m, nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestListCommand_UnexpectedArgument(t *testing.T) {
	m := newManager(t, nil)

	_, stderr, code := runCommand(t, &commands.ListCmd{}, m, []string{"work"}, false)

	expectUserError(t, stderr, code, "error: unexpected argument: work\n")
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	m := newManager(t, nil)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, m, []string{"30", "Write", "tests"}, false)

	expectSuccess(t, stdout, stderr, code)
	got := tasks(t, m)
	if len(got) != 1 {
		t.Fatalf("expected 1 task, got %d", len(got))
	}
	if got[0].Name != "Write tests" || got[0].EstimatedMinutes != 30 {
		t.Errorf("expected 'Write tests' for 30 minutes, got %q for %d", got[0].Name, got[0].EstimatedMinutes)
	}
	if !got[0].NeedsSync {
		t.Error("expected new task to need sync")
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	m := newManager(t, nil)

	stdout, _, code := runCommand(t, &commands.AddCmd{}, m, []string{"30", "Write"}, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_AlsoSaves(t *testing.T) {
	m := newManager(t, nil)
	cmd := &commands.AddCmd{}
	cmd.SetSave(true)

	stdout, stderr, code := runCommand(t, cmd, m, []string{"15", "Standup"}, false)

	expectSuccess(t, stdout, stderr, code)
	if len(tasks(t, m)) != 1 {
		t.Error("expected the task to be added")
	}
	s := saved(t, m)
	if len(s) != 1 || s[0].Name != "Standup" {
		t.Errorf("expected a 'Standup' template, got %+v", s)
	}
}

func TestAddCommand_BadArguments(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "error: minutes required\n"},
		{[]string{"abc", "Write"}, "error: invalid minutes: abc\n"},
		{[]string{"0", "Write"}, "error: invalid minutes: 0\n"},
		{[]string{"30"}, "error: name required\n"},
		{[]string{"30", "  "}, "error: name required\n"},
	}
	for _, tt := range tests {
		m := newManager(t, nil)
		_, stderr, code := runCommand(t, &commands.AddCmd{}, m, tt.args, false)
		expectUserError(t, stderr, code, tt.want)
		if len(tasks(t, m)) != 0 {
			t.Errorf("args %v: expected no task to be added", tt.args)
		}
	}
}

// Tests for done command
func TestDoneCommand_Success(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "Write report", 90)
	addTask(t, m, "Review", 30)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, m, []string{"1"}, false)

	expectSuccess(t, stdout, stderr, code)
	remaining := tasks(t, m)
	if len(remaining) != 1 || remaining[0].Name != "Review" {
		t.Errorf("expected only 'Review' to remain, got %+v", remaining)
	}
	completed, err := m.CompletedTasks()
	if err != nil {
		t.Fatalf("failed to load completed tasks: %v", err)
	}
	if len(completed) != 1 || completed[0].Name != "Write report" {
		t.Errorf("expected 'Write report' to be completed, got %+v", completed)
	}
}

func TestDoneCommand_NoRef(t *testing.T) {
	m := newManager(t, nil)

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, m, nil, false)

	expectUserError(t, stderr, code, "error: task number required\n")
}

func TestDoneCommand_InvalidRef(t *testing.T) {
	m := newManager(t, nil)

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, m, []string{"x1"}, false)

	expectUserError(t, stderr, code, "error: invalid task number: x1\n")
}

func TestDoneCommand_OutOfRange(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "Write report", 90)

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, m, []string{"5"}, false)

	expectUserError(t, stderr, code, "error: task not found: 5\n")
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "Write report", 90)

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, m, []string{"1"}, false)

	expectSuccess(t, stdout, stderr, code)
	if len(tasks(t, m)) != 0 {
		t.Error("expected task to be deleted")
	}
}

func TestRmCommand_SyncedTaskIsQueuedForRemoteDelete(t *testing.T) {
	remote := testutil.NewFakeRemote()
	m := newManager(t, remote)
	addTask(t, m, "Write report", 90)
	if err := m.SyncOnce(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, m, []string{"1"}, false)

	expectSuccess(t, stdout, stderr, code)
	if n := remote.CallCount(testutil.OpDeleteTask); n != 0 {
		t.Errorf("expected rm not to call the backend, got %d calls", n)
	}
	report, err := m.Status()
	if err != nil {
		t.Fatalf("failed to read status: %v", err)
	}
	if report.QueuedIntents != 1 {
		t.Errorf("expected 1 queued delete, got %d", report.QueuedIntents)
	}
}

// Tests for mv command
func TestMoveCommand(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "A", 10)
	addTask(t, m, "B", 20)

	stdout, stderr, code := runCommand(t, &commands.MoveCmd{}, m, []string{"2", "up"}, false)

	expectSuccess(t, stdout, stderr, code)
	got := tasks(t, m)
	if got[0].Name != "B" || got[1].Name != "A" {
		t.Errorf("expected B before A, got %q, %q", got[0].Name, got[1].Name)
	}
	if !got[1].StartTime.Equal(t0.Add(20 * time.Minute)) {
		t.Errorf("expected A to start after B, got %v", got[1].StartTime)
	}
}

func TestMoveCommand_AtBoundary(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "A", 10)

	stdout, stderr, code := runCommand(t, &commands.MoveCmd{}, m, []string{"1", "up"}, false)

	expectSuccess(t, stdout, stderr, code)
}

func TestMoveCommand_BadDirection(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "A", 10)

	_, stderr, code := runCommand(t, &commands.MoveCmd{}, m, []string{"1", "sideways"}, false)
	expectUserError(t, stderr, code, "error: invalid direction: sideways\n")

	_, stderr, code = runCommand(t, &commands.MoveCmd{}, m, []string{"1"}, false)
	expectUserError(t, stderr, code, "error: direction required (up or down)\n")
}

// Tests for edit and adjust commands
func TestEditCommand(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "A", 10)

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, m, []string{"1", "45"}, false)

	expectSuccess(t, stdout, stderr, code)
	if got := tasks(t, m)[0].EstimatedMinutes; got != 45 {
		t.Errorf("expected 45 minutes, got %d", got)
	}
}

func TestEditCommand_InvalidMinutes(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "A", 10)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, m, []string{"1", "0"}, false)

	expectUserError(t, stderr, code, "error: invalid minutes: 0\n")
	if got := tasks(t, m)[0].EstimatedMinutes; got != 10 {
		t.Errorf("expected estimate to stay 10, got %d", got)
	}
}

func TestAdjustCommand(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "A", 30)

	stdout, stderr, code := runCommand(t, &commands.AdjustCmd{}, m, []string{"+15"}, false)
	expectSuccess(t, stdout, stderr, code)
	if got := tasks(t, m)[0].EstimatedMinutes; got != 45 {
		t.Errorf("expected 45 minutes, got %d", got)
	}

	stdout, stderr, code = runCommand(t, &commands.AdjustCmd{}, m, []string{"-60"}, false)
	expectSuccess(t, stdout, stderr, code)
	if got := tasks(t, m)[0].EstimatedMinutes; got != 1 {
		t.Errorf("expected estimate clamped to 1, got %d", got)
	}
}

func TestAdjustCommand_EmptyQueue(t *testing.T) {
	m := newManager(t, nil)

	_, stderr, code := runCommand(t, &commands.AdjustCmd{}, m, []string{"15"}, false)

	expectUserError(t, stderr, code, "error: no tasks\n")
}

// Tests for completed tasks
func TestCompletedCommands(t *testing.T) {
	m := newManager(t, nil)
	addTask(t, m, "Write report", 90)
	addTask(t, m, "Review", 30)
	addTask(t, m, "Plan", 15)
	for range 3 {
		if _, _, code := runCommand(t, &commands.DoneCmd{}, m, []string{"1"}, true); code != exitcode.Success {
			t.Fatalf("done failed with code %d", code)
		}
	}

	stdout, _, code := runCommand(t, &commands.CompletedCmd{}, m, nil, false)
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasPrefix(stdout, "   1  Write report  [1 H:30 M]  done 2026-03-02 09:00\n") {
		t.Errorf("unexpected completed output %q", stdout)
	}

	stdout, stderr, code := runCommand(t, &commands.RmCompletedCmd{}, m, []string{"2"}, false)
	expectSuccess(t, stdout, stderr, code)

	stdout, _, code = runCommand(t, &commands.ClearCmd{}, m, nil, false)
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "removed 2 completed tasks\n" {
		t.Errorf("expected 2 removed, got %q", stdout)
	}

	stdout, _, _ = runCommand(t, &commands.CompletedCmd{}, m, nil, false)
	if stdout != "no completed tasks\n" {
		t.Errorf("expected 'no completed tasks', got %q", stdout)
	}
}

// Tests for saved tasks
func TestSavedCommands(t *testing.T) {
	m := newManager(t, nil)

	stdout, stderr, code := runCommand(t, &commands.SaveCmd{}, m, []string{"20", "Read"}, false)
	expectSuccess(t, stdout, stderr, code)

	stdout, _, _ = runCommand(t, &commands.SavedCmd{}, m, nil, false)
	if stdout != "   1  Read  [20 M]\n" {
		t.Errorf("unexpected saved output %q", stdout)
	}

	stdout, stderr, code = runCommand(t, &commands.EditSavedCmd{}, m, []string{"1", "25", "Read", "more"}, false)
	expectSuccess(t, stdout, stderr, code)

	stdout, stderr, code = runCommand(t, &commands.UseCmd{}, m, []string{"1"}, false)
	expectSuccess(t, stdout, stderr, code)
	got := tasks(t, m)
	if len(got) != 1 || got[0].Name != "Read more" || got[0].EstimatedMinutes != 25 {
		t.Errorf("expected 'Read more' for 25 minutes in the queue, got %+v", got)
	}

	stdout, stderr, code = runCommand(t, &commands.UnsaveCmd{}, m, []string{"1"}, false)
	expectSuccess(t, stdout, stderr, code)
	if len(saved(t, m)) != 0 {
		t.Error("expected template to be deleted")
	}

	stdout, _, _ = runCommand(t, &commands.SavedCmd{}, m, nil, false)
	if stdout != "no saved tasks\n" {
		t.Errorf("expected 'no saved tasks', got %q", stdout)
	}
}

func TestUseCommand_OutOfRange(t *testing.T) {
	m := newManager(t, nil)

	_, stderr, code := runCommand(t, &commands.UseCmd{}, m, []string{"1"}, false)

	expectUserError(t, stderr, code, "error: task not found: 1\n")
}

func TestEditSavedCommand_MissingName(t *testing.T) {
	m := newManager(t, nil)

	_, stderr, code := runCommand(t, &commands.EditSavedCmd{}, m, []string{"1", "25"}, false)

	expectUserError(t, stderr, code, "error: name required\n")
}

// Tests for sync and status commands
func TestSyncCommand_LocalOnly(t *testing.T) {
	m := newManager(t, nil)

	stdout, stderr, code := runCommand(t, &commands.SyncCmd{}, m, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "not logged in, changes are kept locally\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestSyncCommand_PushesTasks(t *testing.T) {
	remote := testutil.NewFakeRemote()
	m := newManager(t, remote)
	addTask(t, m, "Write report", 90)

	stdout, stderr, code := runCommand(t, &commands.SyncCmd{}, m, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.HasPrefix(stdout, "status: synced\n") {
		t.Errorf("expected synced status, got %q", stdout)
	}
	if !strings.Contains(stdout, "unsynced tasks: 0\n") {
		t.Errorf("expected no unsynced tasks, got %q", stdout)
	}
	if len(remote.Tasks()) != 1 {
		t.Errorf("expected 1 remote task, got %d", len(remote.Tasks()))
	}
}

func TestSyncCommand_BackendUnreachable(t *testing.T) {
	remote := testutil.NewFakeRemote()
	remote.SetOffline(true)
	m := newManager(t, remote)
	addTask(t, m, "Write report", 90)

	cmd := &commands.SyncCmd{}
	cmd.SetTimeout(50 * time.Millisecond)
	stdout, stderr, code := runCommand(t, cmd, m, nil, false)

	if code != exitcode.StorageError {
		t.Errorf("expected exit code %d, got %d", exitcode.StorageError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "backend unreachable") {
		t.Errorf("expected unreachable error, got %q", stderr)
	}
	if !tasks(t, m)[0].NeedsSync {
		t.Error("expected task to stay dirty")
	}
}

func TestStatusCommand_LocalOnly(t *testing.T) {
	m := newManager(t, nil)

	stdout, _, code := runCommand(t, &commands.StatusCmd{}, m, nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	expected := "status: local\nunsynced tasks: 0\nqueued changes: 0\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestDaemonCommand_UnreadableState(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "lockin.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := st.Put(store.KeyTasks, "not a list"); err != nil {
		t.Fatalf("failed to write state: %v", err)
	}
	m := manager.New(manager.Options{Store: st, Retry: retry.New(time.Millisecond)})

	stdout, stderr, code := runCommand(t, &commands.DaemonCmd{}, m, nil, false)

	if code != exitcode.StorageError {
		t.Errorf("expected exit code %d, got %d", exitcode.StorageError, code)
	}
	if stdout != "" {
		t.Errorf("expected no output, got %q", stdout)
	}
	if !strings.Contains(stderr, "failed to load state") {
		t.Errorf("expected state error, got %q", stderr)
	}
}
