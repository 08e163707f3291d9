package jobs

import (
	"context"
	"time"

	"castbot/internal/eventbus"
	"castbot/internal/storage"
	"castbot/internal/tts"
	logx "castbot/pkg/logx"
)

type WorkerConfig struct {
	// PollInterval between fetch attempts while idle. 0 means 5s.
	PollInterval time.Duration
	// SynthesisTimeout bounds a single synthesis call. 0 means 2m.
	SynthesisTimeout time.Duration
}

// Worker drains the tts_requests queue one item at a time.
//
// Busy stays latched after a successful publish until the overlay client
// clears it; a failed synthesis releases busy and leaves the request unread,
// so the next tick retries it. Errors never terminate the loop.
type Worker struct {
	cfg   WorkerConfig
	state *State
	store storage.Store
	synth tts.Synthesizer
	bus   eventbus.Bus
	log   logx.Logger
}

// JobEvent is the eventbus payload for tts.job.* events.
type JobEvent struct {
	RequestID int64
	User      string
	At        time.Time
	Error     string
}

func NewWorker(cfg WorkerConfig, state *State, store storage.Store, synth tts.Synthesizer, bus eventbus.Bus, log logx.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 2 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Worker{cfg: cfg, state: state, store: store, synth: synth, bus: bus, log: log}
}

// Run polls until ctx is canceled. Meant to run under the supervisor.
func (w *Worker) Run(ctx context.Context) error {
	t := time.NewTicker(w.cfg.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if w.state.Busy() {
		return
	}

	req, err := w.store.OldestUnreadTTSRequest(ctx)
	if err != nil {
		w.log.Error("tts queue fetch failed", logx.Err(err))
		return
	}
	if req == nil {
		return
	}

	// Single-flight gate. Losing the race leaves the request unread for a
	// later tick.
	if !w.state.TryBegin() {
		return
	}

	w.publishEvent(eventbus.EventJobStarted, req, nil)
	w.log.Info("synthesizing tts request",
		logx.Int64("id", req.ID),
		logx.String("user", req.Username),
		logx.Int("text_len", len(req.Message)))

	sctx, cancel := context.WithTimeout(ctx, w.cfg.SynthesisTimeout)
	audio, err := w.synth.Synthesize(sctx, req.Message)
	cancel()
	if err != nil {
		// Release and leave unread; the request is retried next tick.
		w.state.SetBusy(false)
		w.publishEvent(eventbus.EventJobFailed, req, err)
		w.log.Error("synthesis failed",
			logx.Int64("id", req.ID),
			logx.String("user", req.Username),
			logx.Err(err))
		return
	}

	// Publish before marking read: a crash between the two replays the
	// request, which is the at-least-once contract.
	w.state.Publish(Result{User: req.Username, Text: req.Message, Audio: audio})
	if err := w.store.MarkTTSRequestRead(ctx, req.ID); err != nil {
		w.log.Error("mark read failed", logx.Int64("id", req.ID), logx.Err(err))
	}
	w.publishEvent(eventbus.EventJobPublished, req, nil)
	w.log.Info("tts result published", logx.Int64("id", req.ID), logx.Int("audio_bytes", len(audio)))
	// Busy stays true until the overlay client posts {"busy": false}.
}

func (w *Worker) publishEvent(typ string, req *storage.TTSRequest, err error) {
	if w.bus == nil {
		return
	}
	ev := JobEvent{RequestID: req.ID, User: req.Username, At: time.Now()}
	if err != nil {
		ev.Error = err.Error()
	}
	w.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}
