package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"castbot/internal/eventbus"
	logx "castbot/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	fails int // fail this many sends before succeeding
}

func (f *fakeSender) SendChat(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("send failed")
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestNotifyDelivers(t *testing.T) {
	snd := &fakeSender{}
	s := New(Config{Enabled: true, RatePerSec: 100}, snd, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), "Pong!"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if msgs := snd.messages(); len(msgs) == 1 && msgs[0] == "Pong!" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("ack not delivered, sent=%v", snd.messages())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestNotifyRetriesThenSucceeds(t *testing.T) {
	snd := &fakeSender{fails: 2}
	s := New(Config{
		Enabled:    true,
		RatePerSec: 100,
		RetryMax:   3,
		RetryBase:  time.Millisecond,
	}, snd, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if msgs := snd.messages(); len(msgs) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("expected delivery after retries")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestNotifyDisabled(t *testing.T) {
	s := New(Config{Enabled: false}, &fakeSender{}, logx.Nop(), nil)
	s.Start(context.Background())
	if err := s.Notify(context.Background(), "x"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestNotifyAfterStop(t *testing.T) {
	s := New(Config{Enabled: true}, &fakeSender{}, logx.Nop(), nil)
	s.Start(context.Background())
	s.Stop(context.Background())
	if err := s.Notify(context.Background(), "x"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestFailedAckPublishesEvent(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	snd := &fakeSender{fails: 100}
	s := New(Config{
		Enabled:    true,
		RatePerSec: 100,
		RetryMax:   1,
		RetryBase:  time.Millisecond,
	}, snd, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), "doomed"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == eventbus.EventAckFailed {
				data, ok := ev.Data.(AckEvent)
				if !ok || data.Text != "doomed" || data.Error == "" {
					t.Fatalf("bad event payload %+v", ev.Data)
				}
				return
			}
		case <-deadline:
			t.Fatal("expected ack.failed event")
		}
	}
}
