// Package app wires every component together and owns the process lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"castbot/internal/bot"
	"castbot/internal/bot/commands"
	"castbot/internal/config"
	"castbot/internal/digest"
	"castbot/internal/eventbus"
	"castbot/internal/jobs"
	"castbot/internal/notifier"
	"castbot/internal/profanity"
	rtsup "castbot/internal/runtime/supervisor"
	"castbot/internal/server"
	"castbot/internal/storage"
	"castbot/internal/transport/owncast"
	"castbot/internal/tts"
	logx "castbot/pkg/logx"
)

// StopReason records why the app is shutting down, for the final log line.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopAppStop    StopReason = "app_stop"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store storage.Store

	ingest *bot.Ingest
	notif  *notifier.Service
	state  *jobs.State
	worker *jobs.Worker
	http   *server.Service
	digest *digest.Service
}

// NewApp loads configuration and secrets and constructs every component.
// install is the static command list, normally supplied by main.
func NewApp(cfgPath string, install []func(commands.Deps) bot.Command) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	sec, err := loadSecrets(cfg.TTS.Enabled)
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "owncast"))
	chat, err := owncast.New(owncast.Config{
		BaseURL:     cfg.Owncast.BaseURL,
		AccessToken: sec.owncastToken,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// The chat log sink talks to Owncast directly; the notifier queue is for
	// command acknowledgments only.
	logSvc, log := logx.New(mapLogConfig(cfg), chat)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, chat, log.With(logx.String("comp", "notifier")), bus)

	var synth tts.Synthesizer
	if cfg.TTS.Enabled {
		synth, err = tts.New(mapTTSConfig(cfg, sec.openaiKey), log.With(logx.String("comp", "tts")))
		if err != nil {
			return nil, err
		}
	}

	reg := bot.NewRegistry()
	deps := commands.Deps{
		Store:  store,
		Filter: profanity.New(),
		Acks:   notif,
		Bus:    bus,
		Log:    log.With(logx.String("comp", "commands")),
	}
	for _, mk := range install {
		cmd := mk(deps)
		if containsFold(cfg.Commands.Disabled, cmd.Name) {
			cmd.Enabled = false
		}
		if err := reg.Register(cmd); err != nil {
			return nil, fmt.Errorf("register command: %w", err)
		}
	}
	router := bot.NewRouter(reg, log.With(logx.String("comp", "router")))
	ingest := bot.NewIngest(sec.webhookSecret, cfg.Owncast.CommandPrefix, router, log.With(logx.String("comp", "ingest")))

	state := jobs.NewState()
	var worker *jobs.Worker
	if cfg.TTS.Enabled {
		wcfg, err := mapWorkerConfig(cfg)
		if err != nil {
			return nil, err
		}
		worker = jobs.NewWorker(wcfg, state, store, synth, bus, log.With(logx.String("comp", "worker")))
	}

	srvCfg, err := mapServerConfig(cfg)
	if err != nil {
		return nil, err
	}
	httpSrv := server.New(srvCfg, ingest, state, store, log.With(logx.String("comp", "server")))

	dig := digest.New(mapDigestConfig(cfg), store, notif, log.With(logx.String("comp", "digest")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		ingest:  ingest,
		notif:   notif,
		state:   state,
		worker:  worker,
		http:    httpSrv,
		digest:  dig,
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapServerConfig(cfg); err != nil {
			return err
		}
		if _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if _, err := mapNotifierConfig(cfg); err != nil {
			return err
		}
		if _, err := mapWorkerConfig(cfg); err != nil {
			return err
		}
		if cfg.Digest.Enabled && cfg.Digest.Schedule != "" {
			if _, err := cron.ParseStandard(cfg.Digest.Schedule); err != nil {
				return fmt.Errorf("digest.schedule: %w", err)
			}
		}
		return nil
	})

	if a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
	}
	a.http.Start(a.sup.Context())
	if a.worker != nil {
		a.sup.GoRestart("tts.worker", a.worker.Run, rtsup.WithPublishFirstError(true))
	}
	a.digest.Start(a.sup.Context())

	// Debug visibility on component lifecycle events.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// Hot reload fan-out.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		return
	}

	a.logs.Apply(mapLogConfig(cfg))
	a.ingest.SetPrefix(cfg.Owncast.CommandPrefix)

	if ncfg, err := mapNotifierConfig(cfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		prevEnabled := a.notif.Enabled()
		a.notif.Apply(ncfg)
		if prevEnabled && !ncfg.Enabled {
			a.log.Info("notifier disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		} else if !prevEnabled && ncfg.Enabled {
			a.log.Info("notifier enabled via config")
			a.notif.Start(ctx)
		}
	}

	a.digest.Apply(mapDigestConfig(cfg))

	// Changes below need a restart; say so instead of half-applying.
	workerRunning := a.worker != nil
	if workerRunning != cfg.TTS.Enabled {
		a.log.Warn("tts.enabled changed; restart required for changes to take effect")
	}
	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Run a shutdown step with an upper bound so one component can't stall
	// the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// Respect the caller's deadline; never extend it.
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("digest", 2*time.Second, func(c context.Context) error { a.digest.Stop(c); return nil })
	step("server", 3*time.Second, func(c context.Context) error { a.http.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", 1*time.Second, func(_ context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
