package commands

import "testing"

func TestDefaultRegistry_AllCommandsRegistered(t *testing.T) {
	want := []string{
		"add", "adjust", "clear", "completed", "daemon", "done", "edit", "editsaved",
		"help", "list", "login", "logout", "mv", "recompute", "rm", "rmcompleted",
		"save", "saved", "status", "sync", "unsave", "use", "version",
	}

	all := DefaultRegistry.All()
	if len(all) != len(want) {
		t.Fatalf("expected %d commands, got %d", len(want), len(all))
	}
	for i, cmd := range all {
		if cmd.Name() != want[i] {
			t.Errorf("expected command %d to be %s, got %s", i, want[i], cmd.Name())
		}
	}
}

func TestRegistry_FindByAlias(t *testing.T) {
	cmd, ok := DefaultRegistry.Find("ls")
	if !ok {
		t.Fatal("expected alias ls to resolve")
	}
	if cmd.Name() != "list" {
		t.Errorf("expected list, got %s", cmd.Name())
	}
}

func TestRegistry_RejectsDuplicateAlias(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&ListCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(&ListCmd{}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistry_Suggest(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"dae", "daemon", true},
		{"rmc", "rmcompleted", true},
		{"templ", "saved", true},
		{"re", "recompute", true},
		{"s", "", false},
		{"comp", "", false},
		{"xyz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := DefaultRegistry.Suggest(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Suggest(%q): expected (%q, %v), got (%q, %v)", tt.input, tt.want, tt.ok, got, ok)
		}
	}
}
