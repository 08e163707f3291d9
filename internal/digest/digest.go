// Package digest posts a periodic summary of unresolved afterstream notes
// to the stream chat.
package digest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"castbot/internal/storage"
	logx "castbot/pkg/logx"
)

// Notifier enqueues a chat message for async delivery.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Config struct {
	Enabled bool
	// Schedule is a standard 5-field cron expression.
	Schedule string
	// MaxItems caps how many notes appear in one digest. 0 means 10.
	MaxItems int
}

type Service struct {
	mu    sync.Mutex
	cfg   Config
	store storage.Store
	acks  Notifier
	log   logx.Logger

	cron *cron.Cron
}

func New(cfg Config, store storage.Store, acks Notifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10
	}
	return &Service{cfg: cfg, store: store, acks: acks, log: log}
}

// Start schedules the digest. Idempotent; a bad schedule logs and disables.
func (s *Service) Start(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *Service) startLocked() {
	if !s.cfg.Enabled || s.cron != nil {
		return
	}
	schedule := strings.TrimSpace(s.cfg.Schedule)
	if schedule == "" {
		schedule = "0 9 * * *"
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		s.log.Error("invalid digest schedule", logx.String("schedule", schedule), logx.Err(err))
		return
	}
	c.Start()
	s.cron = c
	s.log.Info("digest scheduled", logx.String("schedule", schedule))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Apply reconfigures the schedule at runtime.
func (s *Service) Apply(cfg Config) {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10
	}

	s.mu.Lock()
	changed := cfg != s.cfg
	s.cfg = cfg
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if !changed {
		s.mu.Lock()
		s.cron = c
		s.mu.Unlock()
		return
	}
	if c != nil {
		<-c.Stop().Done()
	}
	s.mu.Lock()
	s.startLocked()
	s.mu.Unlock()
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.mu.Lock()
	maxItems := s.cfg.MaxItems
	s.mu.Unlock()

	notes, err := s.store.UnresolvedNotes(ctx)
	if err != nil {
		s.log.Error("digest fetch failed", logx.Err(err))
		return
	}
	msg := Compose(notes, maxItems)
	if msg == "" {
		return
	}
	if err := s.acks.Notify(ctx, msg); err != nil {
		s.log.Warn("digest enqueue failed", logx.Err(err))
	}
}

// Compose renders the digest text. Empty input yields an empty string.
func Compose(notes []storage.AfterstreamNote, maxItems int) string {
	if len(notes) == 0 {
		return ""
	}
	if maxItems <= 0 {
		maxItems = 10
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d afterstream note(s) pending:", len(notes))
	shown := notes
	if len(shown) > maxItems {
		shown = shown[:maxItems]
	}
	for _, n := range shown {
		b.WriteString(" [")
		b.WriteString(n.CreatedAt.Format("Jan 2 15:04"))
		b.WriteString("] ")
		b.WriteString(n.Message)
		b.WriteString(";")
	}
	if len(notes) > maxItems {
		fmt.Fprintf(&b, " and %d more", len(notes)-maxItems)
	}
	return strings.TrimSuffix(b.String(), ";")
}
