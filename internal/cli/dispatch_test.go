package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"lockin/internal/cli"
	"lockin/internal/commands"
	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/manager"
	"lockin/internal/store"
	"lockin/internal/testutil"
)

// testFactory creates a manager factory over a temporary store and the given remote.
func testFactory(t *testing.T, remote *testutil.FakeRemote) cli.ManagerFactory {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lockin.db")
	return func(ctx context.Context, cfg *config.Config) (*manager.Manager, error) {
		st, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		opts := manager.Options{Store: st}
		if remote != nil {
			opts.Remote = remote
		}
		return manager.New(opts), nil
	}
}

func run(d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))

	_, stderr, code := run(dispatcher, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_UnknownCommandSuggestion(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))

	_, stderr, code := run(dispatcher, "dae")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: dae (did you mean daemon?)\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))

	_, stderr, code := run(dispatcher, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))

	stdout, stderr, code := run(dispatcher, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))

	stdout, stderr, code := run(dispatcher, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "lockin 0.1.0\n" {
		t.Errorf("expected 'lockin 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))

	_, stderr, code := run(dispatcher, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))

	_, stderr, code := run(dispatcher, "sync", "--timeout")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -timeout\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoArgsListsTasks(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))
	dir := t.TempDir()

	if _, stderr, code := run(dispatcher, "add", "--config", dir, "30", "Write", "report"); code != exitcode.Success {
		t.Fatalf("add failed with code %d: %s", code, stderr)
	}

	stdout, stderr, code := run(dispatcher)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stdout, "Write report") {
		t.Errorf("expected the task in the list, got %q", stdout)
	}
}

func TestDispatcher_NegativeAdjustment(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))
	dir := t.TempDir()

	if _, stderr, code := run(dispatcher, "add", "--config", dir, "30", "Write"); code != exitcode.Success {
		t.Fatalf("add failed with code %d: %s", code, stderr)
	}

	stdout, stderr, code := run(dispatcher, "adjust", "--config", dir, "-10")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok', got %q", stdout)
	}

	stdout, _, _ = run(dispatcher, "list", "--config", dir)
	if !strings.Contains(stdout, "[20 M]") {
		t.Errorf("expected a 20 minute estimate, got %q", stdout)
	}
}

func TestDispatcher_QuietFlag(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, nil))

	stdout, stderr, code := run(dispatcher, "save", "--quiet", "--config", t.TempDir(), "20", "Read")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestDispatcher_FactoryErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{errors.New("timeout"), exitcode.StorageError},
		{cli.ErrSession, exitcode.AuthError},
	}
	for _, tt := range tests {
		factory := func(ctx context.Context, cfg *config.Config) (*manager.Manager, error) {
			return nil, tt.err
		}
		dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

		_, stderr, code := run(dispatcher, "list", "--config", t.TempDir())

		if code != tt.code {
			t.Errorf("%v: expected exit code %d, got %d", tt.err, tt.code, code)
		}
		if stderr == "" {
			t.Errorf("%v: expected an error message", tt.err)
		}
	}
}

func TestDispatcher_FactoryNotCalledForHelp(t *testing.T) {
	called := false
	factory := func(ctx context.Context, cfg *config.Config) (*manager.Manager, error) {
		called = true
		return nil, errors.New("unexpected")
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	if _, _, code := run(dispatcher, "help"); code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if called {
		t.Error("expected help not to open the manager")
	}
}

func TestDispatcher_SyncAgainstRemote(t *testing.T) {
	remote := testutil.NewFakeRemote()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(t, remote))
	dir := t.TempDir()

	if _, stderr, code := run(dispatcher, "add", "--config", dir, "30", "Write"); code != exitcode.Success {
		t.Fatalf("add failed with code %d: %s", code, stderr)
	}

	stdout, stderr, code := run(dispatcher, "sync", "--config", dir, "--timeout", "5s")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.HasPrefix(stdout, "status: synced") {
		t.Errorf("expected synced status, got %q", stdout)
	}
	if len(remote.Tasks()) != 1 {
		t.Errorf("expected 1 remote task, got %d", len(remote.Tasks()))
	}
}

func TestOpenManager_LocalOnlyWithoutSession(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}

	m, err := cli.OpenManager(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.HasRemote() {
		t.Error("expected a local-only manager without a session")
	}
	if _, err := os.Stat(cfg.DBPath()); err != nil {
		t.Errorf("expected the store to be created: %v", err)
	}
}

func TestOpenManager_WithSession(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	cfg.Settings.RetryDelay = time.Millisecond
	if err := cfg.SaveSession(&oauth2.Token{AccessToken: "abc"}); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	m, err := cli.OpenManager(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.HasRemote() {
		t.Error("expected a connected manager with a session")
	}
}

func TestOpenManager_CorruptSession(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	if err := os.WriteFile(cfg.SessionPath(), []byte("not json"), 0600); err != nil {
		t.Fatalf("failed to write session: %v", err)
	}

	_, err := cli.OpenManager(context.Background(), cfg)
	if !errors.Is(err, cli.ErrSession) {
		t.Errorf("expected ErrSession, got %v", err)
	}
}
