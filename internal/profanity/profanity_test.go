package profanity

import "testing"

func TestMatches(t *testing.T) {
	f := New()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"clean", "hello stream, great music today", false},
		{"empty", "", false},
		{"profane", "this is shit", true},
		{"leet", "this is sh1t", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Matches(tt.text); got != tt.want {
				t.Fatalf("Matches(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAllowMatchesNothing(t *testing.T) {
	var f Allow
	if f.Matches("this is shit") {
		t.Fatal("Allow must never match")
	}
}
