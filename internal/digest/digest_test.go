package digest

import (
	"strings"
	"testing"
	"time"

	"castbot/internal/storage"
)

func TestComposeEmpty(t *testing.T) {
	if got := Compose(nil, 10); got != "" {
		t.Fatalf("expected empty digest, got %q", got)
	}
}

func TestCompose(t *testing.T) {
	at := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)
	notes := []storage.AfterstreamNote{
		{ID: 1, Message: "fix overlay", CreatedAt: at},
		{ID: 2, Message: "thank raiders", CreatedAt: at.Add(time.Hour)},
	}
	got := Compose(notes, 10)
	if !strings.HasPrefix(got, "2 afterstream note(s) pending:") {
		t.Fatalf("digest = %q", got)
	}
	if !strings.Contains(got, "fix overlay") || !strings.Contains(got, "thank raiders") {
		t.Fatalf("digest = %q", got)
	}
}

func TestComposeCapsItems(t *testing.T) {
	at := time.Now()
	notes := make([]storage.AfterstreamNote, 5)
	for i := range notes {
		notes[i] = storage.AfterstreamNote{ID: int64(i), Message: "note", CreatedAt: at}
	}
	got := Compose(notes, 2)
	if !strings.Contains(got, "and 3 more") {
		t.Fatalf("digest = %q", got)
	}
	if strings.Count(got, "note;")+strings.Count(got, "note ") > 3 {
		t.Fatalf("too many items rendered: %q", got)
	}
}
