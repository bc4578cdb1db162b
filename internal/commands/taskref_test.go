package commands

import (
	"errors"
	"testing"
)

func TestParsePosition_Valid(t *testing.T) {
	n, err := ParsePosition([]string{"5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5, got %d", n)
	}
}

func TestParsePosition_IgnoresTrailingArgs(t *testing.T) {
	n, err := ParsePosition([]string{"12", "up"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 12 {
		t.Errorf("expected 12, got %d", n)
	}
}

func TestParsePosition_Empty(t *testing.T) {
	_, err := ParsePosition(nil)
	if !errors.Is(err, ErrPositionRequired) {
		t.Errorf("expected ErrPositionRequired, got %v", err)
	}
}

func TestParsePosition_Invalid(t *testing.T) {
	for _, arg := range []string{"0", "a1", "-1", "1.5", "٣"} {
		_, err := ParsePosition([]string{arg})
		if err == nil {
			t.Errorf("expected error for %q", arg)
			continue
		}
		if err.Error() != "invalid task number: "+arg {
			t.Errorf("unexpected error for %q: %v", arg, err)
		}
	}
}

func TestParseMinutes(t *testing.T) {
	if n, err := ParseMinutes("90"); err != nil || n != 90 {
		t.Errorf("expected 90, got %d (%v)", n, err)
	}
	for _, arg := range []string{"0", "-5", "abc", ""} {
		if _, err := ParseMinutes(arg); err == nil {
			t.Errorf("expected error for %q", arg)
		}
	}
}

func TestNotFoundError(t *testing.T) {
	err := errNotFound(3)
	var nf notFoundError
	if !errors.As(err, &nf) {
		t.Fatal("expected notFoundError")
	}
	if err.Error() != "task not found: 3" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
