package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"castbot/internal/bot"
	"castbot/internal/profanity"
	"castbot/internal/storage"
	logx "castbot/pkg/logx"
)

type recordingAcks struct {
	sent []string
}

func (r *recordingAcks) Notify(_ context.Context, text string) error {
	r.sent = append(r.sent, text)
	return nil
}

type denyList map[string]bool

func (d denyList) Matches(text string) bool { return d[text] }

func testDeps(t *testing.T) (Deps, *recordingAcks, storage.Store) {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	acks := &recordingAcks{}
	return Deps{
		Store:  st,
		Filter: profanity.Allow{},
		Acks:   acks,
		Log:    logx.Nop(),
	}, acks, st
}

func TestPing(t *testing.T) {
	deps, acks, _ := testDeps(t)
	cmd := Ping(deps)

	if err := cmd.Handle(context.Background(), bot.Request{User: "alice"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(acks.sent) != 1 || acks.sent[0] != "Pong!" {
		t.Fatalf("acks = %v", acks.sent)
	}
}

func TestAfterstreamPersistsAndAcks(t *testing.T) {
	deps, acks, st := testDeps(t)
	cmd := Afterstream(deps)
	ctx := context.Background()

	if err := cmd.Handle(ctx, bot.Request{User: "alice", Args: []string{"fix", "the", "overlay"}}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	notes, err := st.UnresolvedNotes(ctx)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Message != "fix the overlay" {
		t.Fatalf("notes = %+v", notes)
	}
	if notes[0].Resolved {
		t.Fatal("new note must be unresolved")
	}
	if len(acks.sent) != 1 || acks.sent[0] != "Message has been logged." {
		t.Fatalf("acks = %v", acks.sent)
	}
}

func TestAfterstreamEmptyShowsUsage(t *testing.T) {
	deps, acks, st := testDeps(t)
	cmd := Afterstream(deps)
	ctx := context.Background()

	if err := cmd.Handle(ctx, bot.Request{User: "alice"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	notes, _ := st.UnresolvedNotes(ctx)
	if len(notes) != 0 {
		t.Fatalf("no note should persist, got %+v", notes)
	}
	if len(acks.sent) != 1 {
		t.Fatalf("acks = %v", acks.sent)
	}
}

func TestTTSPersistsCleanMessage(t *testing.T) {
	deps, acks, st := testDeps(t)
	cmd := TTS(deps)
	ctx := context.Background()

	if err := cmd.Handle(ctx, bot.Request{User: "Alice", Args: []string{"hello", "stream"}}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	r, err := st.OldestUnreadTTSRequest(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if r == nil {
		t.Fatal("expected a queued request")
	}
	if r.Username != "Alice" || r.Message != "hello stream" || r.Read {
		t.Fatalf("request = %+v", r)
	}
	// tts never acknowledges in chat.
	if len(acks.sent) != 0 {
		t.Fatalf("acks = %v", acks.sent)
	}
}

func TestTTSProfaneIsSilentNoop(t *testing.T) {
	deps, acks, st := testDeps(t)
	deps.Filter = denyList{"bad words": true}
	cmd := TTS(deps)
	ctx := context.Background()

	if err := cmd.Handle(ctx, bot.Request{User: "bob", Args: []string{"bad", "words"}}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	r, err := st.OldestUnreadTTSRequest(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if r != nil {
		t.Fatalf("profane request must not persist, got %+v", r)
	}
	if len(acks.sent) != 0 {
		t.Fatalf("acks = %v", acks.sent)
	}
}

func TestAllAppliesDisabledList(t *testing.T) {
	deps, _, _ := testDeps(t)
	cmds := All(deps, []string{"tts"})

	byName := map[string]bot.Command{}
	for _, c := range cmds {
		byName[c.Name] = c
	}
	if !byName["ping"].Enabled || !byName["afterstream"].Enabled {
		t.Fatal("ping/afterstream should stay enabled")
	}
	if byName["tts"].Enabled {
		t.Fatal("tts should be disabled")
	}
}
