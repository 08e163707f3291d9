package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"castbot/internal/config"
	"castbot/internal/digest"
	"castbot/internal/jobs"
	"castbot/internal/notifier"
	"castbot/internal/server"
	"castbot/internal/storage"
	"castbot/internal/tts"
	logx "castbot/pkg/logx"
)

// Environment variables carrying secrets. The config file never holds them.
const (
	EnvOwncastToken  = "OWNCAST_ACCESS_TOKEN"
	EnvWebhookSecret = "CASTBOT_WEBHOOK_SECRET"
	EnvOpenAIKey     = "OPENAI_API_KEY"
)

type secrets struct {
	owncastToken  string
	webhookSecret string
	openaiKey     string
}

func loadSecrets(ttsEnabled bool) (secrets, error) {
	s := secrets{
		owncastToken:  strings.TrimSpace(os.Getenv(EnvOwncastToken)),
		webhookSecret: strings.TrimSpace(os.Getenv(EnvWebhookSecret)),
		openaiKey:     strings.TrimSpace(os.Getenv(EnvOpenAIKey)),
	}
	if s.owncastToken == "" {
		return s, errors.New(EnvOwncastToken + " is not set")
	}
	if s.webhookSecret == "" {
		return s, errors.New(EnvWebhookSecret + " is not set")
	}
	if ttsEnabled && s.openaiKey == "" {
		return s, errors.New(EnvOpenAIKey + " is not set (required while tts.enabled)")
	}
	return s, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Chat.Enabled,
			MinLevel:   cfg.Logging.Chat.MinLevel,
			RatePerSec: cfg.Logging.Chat.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		path = "./data/castbot.db"
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: sc.Driver, Path: path, BusyTimeout: busy}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	nc := cfg.Notifier
	enabled := true
	if nc.Enabled != nil {
		enabled = *nc.Enabled
	}
	retryBase, err := config.ParseDurationOrDefault("notifier.retry_base", nc.RetryBase, 500*time.Millisecond)
	if err != nil {
		return notifier.Config{}, err
	}
	if nc.QueueSize < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.queue_size must be >= 0")
	}
	if nc.RetryMax < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.retry_max must be >= 0")
	}
	return notifier.Config{
		Enabled:    enabled,
		QueueSize:  nc.QueueSize,
		RatePerSec: nc.RatePerSec,
		RetryMax:   nc.RetryMax,
		RetryBase:  retryBase,
	}, nil
}

func mapServerConfig(cfg *config.Config) (server.Config, error) {
	sc := cfg.Server
	read, err := config.ParseDurationOrDefault("server.read_timeout", sc.ReadTimeout, 10*time.Second)
	if err != nil {
		return server.Config{}, err
	}
	write, err := config.ParseDurationOrDefault("server.write_timeout", sc.WriteTimeout, 30*time.Second)
	if err != nil {
		return server.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("server.idle_timeout", sc.IdleTimeout, 60*time.Second)
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		Addr:         sc.Addr,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}

func mapWorkerConfig(cfg *config.Config) (jobs.WorkerConfig, error) {
	tc := cfg.TTS
	poll, err := config.ParseDurationOrDefault("tts.poll_interval", tc.PollInterval, 5*time.Second)
	if err != nil {
		return jobs.WorkerConfig{}, err
	}
	synth, err := config.ParseDurationOrDefault("tts.synthesis_timeout", tc.SynthesisTimeout, 2*time.Minute)
	if err != nil {
		return jobs.WorkerConfig{}, err
	}
	return jobs.WorkerConfig{PollInterval: poll, SynthesisTimeout: synth}, nil
}

func mapTTSConfig(cfg *config.Config, apiKey string) tts.Config {
	return tts.Config{
		APIKey:  apiKey,
		BaseURL: cfg.TTS.BaseURL,
		Model:   cfg.TTS.Model,
		Voice:   cfg.TTS.Voice,
		Speed:   cfg.TTS.Speed,
	}
}

func mapDigestConfig(cfg *config.Config) digest.Config {
	return digest.Config{
		Enabled:  cfg.Digest.Enabled,
		Schedule: cfg.Digest.Schedule,
		MaxItems: cfg.Digest.MaxItems,
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
