package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"castbot/internal/bot"
	"castbot/internal/bot/commands"
	"castbot/internal/jobs"
	"castbot/internal/profanity"
	"castbot/internal/storage"
	"castbot/internal/transport"
	logx "castbot/pkg/logx"
)

type nopAcks struct{ sent []string }

func (n *nopAcks) Notify(_ context.Context, text string) error {
	n.sent = append(n.sent, text)
	return nil
}

type fixture struct {
	srv   *httptest.Server
	state *jobs.State
	store storage.Store
	acks  *nopAcks
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := storage.Open(storage.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	acks := &nopAcks{}
	reg := bot.NewRegistry()
	for _, cmd := range commands.All(commands.Deps{
		Store:  st,
		Filter: profanity.Allow{},
		Acks:   acks,
		Log:    logx.Nop(),
	}, nil) {
		if err := reg.Register(cmd); err != nil {
			t.Fatalf("register %s: %v", cmd.Name, err)
		}
	}
	router := bot.NewRouter(reg, logx.Nop())
	ingest := bot.NewIngest("s3cret", "!", router, logx.Nop())

	state := jobs.NewState()
	svc := New(Config{}, ingest, state, st, logx.Nop())

	hs := httptest.NewServer(svc.Handler())
	t.Cleanup(hs.Close)
	return &fixture{srv: hs, state: state, store: st, acks: acks}
}

func (f *fixture) postWebhook(t *testing.T, secret, user, body string) *http.Response {
	t.Helper()
	payload, err := json.Marshal(transport.WebhookEvent{
		Type: transport.EventTypeChat,
		EventData: transport.ChatEventData{
			User:    transport.ChatUser{DisplayName: user},
			RawBody: body,
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(f.srv.URL+"/webhook/"+secret, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestWebhookStatuses(t *testing.T) {
	f := newFixture(t)

	if resp := f.postWebhook(t, "wrong", "alice", "!ping"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("bad secret: status %d", resp.StatusCode)
	}
	if resp := f.postWebhook(t, "s3cret", "alice", "just chatting"); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("no prefix: status %d", resp.StatusCode)
	}
	if resp := f.postWebhook(t, "s3cret", "alice", "!nope"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown command: status %d", resp.StatusCode)
	}
	if resp := f.postWebhook(t, "s3cret", "alice", "!ping"); resp.StatusCode != http.StatusOK {
		t.Fatalf("ping: status %d", resp.StatusCode)
	}
}

// Scenario: a viewer pings the bot and gets an acknowledgment queued.
func TestScenarioPing(t *testing.T) {
	f := newFixture(t)
	if resp := f.postWebhook(t, "s3cret", "alice", "!ping"); resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if len(f.acks.sent) != 1 || f.acks.sent[0] != "Pong!" {
		t.Fatalf("acks = %v", f.acks.sent)
	}
}

// Scenario: an afterstream note flows from chat to the review API and back
// out through resolve.
func TestScenarioAfterstream(t *testing.T) {
	f := newFixture(t)

	if resp := f.postWebhook(t, "s3cret", "alice", "!afterstream remember to raid"); resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	resp, err := http.Get(f.srv.URL + "/afterstream")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var notes []storage.AfterstreamNote
	if err := json.NewDecoder(resp.Body).Decode(&notes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(notes) != 1 || notes[0].Message != "remember to raid" {
		t.Fatalf("notes = %+v", notes)
	}

	rresp, err := http.Post(f.srv.URL+"/afterstream/"+strconv.FormatInt(notes[0].ID, 10)+"/resolve", "", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	rresp.Body.Close()
	if rresp.StatusCode != http.StatusOK {
		t.Fatalf("resolve status %d", rresp.StatusCode)
	}

	resp2, err := http.Get(f.srv.URL + "/afterstream")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	var after []storage.AfterstreamNote
	_ = json.NewDecoder(resp2.Body).Decode(&after)
	if len(after) != 0 {
		t.Fatalf("expected empty list after resolve, got %+v", after)
	}
}

// Scenario: a tts command queues a request without any chat feedback.
func TestScenarioTTSQueued(t *testing.T) {
	f := newFixture(t)
	if resp := f.postWebhook(t, "s3cret", "Bob", "!tts hello friends"); resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if len(f.acks.sent) != 0 {
		t.Fatalf("tts must not ack, got %v", f.acks.sent)
	}
	r, err := f.store.OldestUnreadTTSRequest(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if r == nil || r.Username != "Bob" || r.Message != "hello friends" {
		t.Fatalf("request = %+v", r)
	}
}

// Scenario: the overlay client polls status, fetches a result, resets it and
// releases busy.
func TestScenarioOverlayPolling(t *testing.T) {
	f := newFixture(t)

	getBusy := func() bool {
		resp, err := http.Get(f.srv.URL + "/jobs/status")
		if err != nil {
			t.Fatalf("get status: %v", err)
		}
		defer resp.Body.Close()
		var out struct {
			Busy bool `json:"busy"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return out.Busy
	}

	if getBusy() {
		t.Fatal("fresh state must be idle")
	}

	// Worker publishes a result and latches busy.
	f.state.SetBusy(true)
	f.state.Publish(jobs.Result{User: "alice", Text: "hi", Audio: []byte("mp3")})

	if !getBusy() {
		t.Fatal("expected busy after publish")
	}

	resp, err := http.Get(f.srv.URL + "/jobs/result")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Result *struct {
			User  string `json:"user"`
			Text  string `json:"text"`
			Audio []byte `json:"audio"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result == nil || out.Result.User != "alice" || string(out.Result.Audio) != "mp3" {
		t.Fatalf("result = %+v", out.Result)
	}

	// Playback done: reset result, release busy.
	rresp, err := http.Post(f.srv.URL+"/jobs/result/reset", "", nil)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	rresp.Body.Close()
	if rresp.StatusCode != http.StatusOK {
		t.Fatalf("reset status %d", rresp.StatusCode)
	}
	if f.state.Result() != nil {
		t.Fatal("result must be cleared")
	}
	if !getBusy() {
		t.Fatal("reset must not release busy")
	}

	sresp, err := http.Post(f.srv.URL+"/jobs/status", "application/json", strings.NewReader(`{"busy": false}`))
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	sresp.Body.Close()
	if sresp.StatusCode != http.StatusOK {
		t.Fatalf("set status %d", sresp.StatusCode)
	}
	if getBusy() {
		t.Fatal("expected idle after release")
	}
}

func TestJobStatusRejectsNonBoolean(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`{"busy": "yes"}`, `{"busy": 1}`, `{}`, `not json`} {
		resp, err := http.Post(f.srv.URL+"/jobs/status", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestJobResultNullWhenEmpty(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/jobs/result")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out["result"]) != "null" {
		t.Fatalf("result = %s, want null", out["result"])
	}
}

func TestResolveUnknownNote(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Post(f.srv.URL+"/afterstream/9999/resolve", "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
