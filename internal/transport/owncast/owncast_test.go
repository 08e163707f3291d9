package owncast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "castbot/pkg/logx"
)

func TestSendChat(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/integrations/chat/send" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/", AccessToken: "tok123"}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SendChat(context.Background(), "Pong!"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["body"] != "Pong!" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestSendChatNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, AccessToken: "bad"}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SendChat(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestSendChatSkipsEmpty(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1"}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Must not attempt a request at all.
	if err := c.SendChat(context.Background(), "   "); err != nil {
		t.Fatalf("SendChat: %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty base_url")
	}
}
