package bot

import (
	"context"
	"errors"
	"testing"
)

func noop(context.Context, Request) error { return nil }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Command{Name: "Ping", Enabled: true, Handle: noop}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Names are case-folded at registration and lookup.
	cmd, ok := r.Lookup("PING")
	if !ok {
		t.Fatal("expected lookup hit")
	}
	if cmd.Name != "ping" {
		t.Fatalf("expected normalized name, got %q", cmd.Name)
	}

	if _, ok := r.Lookup("nope"); ok {
		t.Fatal("expected lookup miss")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Command{Name: "ping", Enabled: true, Handle: noop}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(Command{Name: "PING", Enabled: true, Handle: noop}); !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("expected ErrDuplicateCommand, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Command{Name: "", Handle: noop}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := r.Register(Command{Name: "x"}); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestNames(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"tts", "ping", "afterstream"} {
		if err := r.Register(Command{Name: n, Enabled: true, Handle: noop}); err != nil {
			t.Fatalf("Register(%s): %v", n, err)
		}
	}
	got := r.Names()
	want := []string{"afterstream", "ping", "tts"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}
}
