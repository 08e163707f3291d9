package bot

import (
	"context"
	"errors"
	"testing"

	logx "castbot/pkg/logx"
)

func TestDispatchSuccess(t *testing.T) {
	r := NewRegistry()
	var gotReq Request
	_ = r.Register(Command{Name: "ping", Enabled: true, Handle: func(_ context.Context, req Request) error {
		gotReq = req
		return nil
	}})
	rt := NewRouter(r, logx.Nop())

	out := rt.Dispatch(context.Background(), "ping", "alice", []string{"a", "b"})
	if out != OutcomeSuccess {
		t.Fatalf("expected success, got %v", out)
	}
	if gotReq.User != "alice" || len(gotReq.Args) != 2 {
		t.Fatalf("handler saw %+v", gotReq)
	}
}

func TestDispatchUnknownAndDisabledIndistinguishable(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Command{Name: "secret", Enabled: false, Handle: noop})
	rt := NewRouter(r, logx.Nop())

	unknown := rt.Dispatch(context.Background(), "nope", "alice", nil)
	disabled := rt.Dispatch(context.Background(), "secret", "alice", nil)
	if unknown != OutcomeNotFound || disabled != OutcomeNotFound {
		t.Fatalf("expected NotFound for both, got unknown=%v disabled=%v", unknown, disabled)
	}
}

func TestDispatchHandlerErrorRunsOnce(t *testing.T) {
	r := NewRegistry()
	calls := 0
	_ = r.Register(Command{Name: "boom", Enabled: true, Handle: func(context.Context, Request) error {
		calls++
		return errors.New("kaput")
	}})
	rt := NewRouter(r, logx.Nop())

	if out := rt.Dispatch(context.Background(), "boom", "bob", nil); out != OutcomeInternalError {
		t.Fatalf("expected internal error, got %v", out)
	}
	if calls != 1 {
		t.Fatalf("handler must run at most once, ran %d times", calls)
	}
}
