package config

// Config is the on-disk configuration (YAML or JSON).
//
// Secrets never live here; they come from the environment:
//
//	OWNCAST_ACCESS_TOKEN    bearer token for the Owncast integrations API
//	CASTBOT_WEBHOOK_SECRET  shared secret checked on the webhook path
//	OPENAI_API_KEY          key for the speech synthesis API
type Config struct {
	Owncast  OwncastConfig  `json:"owncast"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Notifier NotifierConfig `json:"notifier"`
	TTS      TTSConfig      `json:"tts"`
	Digest   DigestConfig   `json:"digest,omitempty"`
	Commands CommandsConfig `json:"commands,omitempty"`
}

type OwncastConfig struct {
	// BaseURL of the Owncast instance, e.g. "http://127.0.0.1:8080".
	BaseURL string `json:"base_url"`
	// CommandPrefix marks chat messages as commands, e.g. "!".
	CommandPrefix string `json:"command_prefix"`
}

// ServerConfig controls the bot's own HTTP listener (webhook + jobs API).
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type ServerConfig struct {
	Addr         string `json:"addr"`
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Chat    LoggingChat `json:"chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingChat mirrors high-severity log lines into the stream chat.
type LoggingChat struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/castbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// NotifierConfig controls the async chat-acknowledgment pipeline.
// If the whole section is omitted, the notifier defaults to enabled.
type NotifierConfig struct {
	Enabled    *bool  `json:"enabled,omitempty"`
	QueueSize  int    `json:"queue_size,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	RetryMax   int    `json:"retry_max,omitempty"`
	RetryBase  string `json:"retry_base,omitempty"`
}

// TTSConfig controls the speech synthesis worker.
type TTSConfig struct {
	Enabled bool `json:"enabled"`
	// PollInterval between fetch attempts while idle. Default "5s".
	PollInterval string `json:"poll_interval,omitempty"`
	// SynthesisTimeout bounds a single synthesis call. Default "2m".
	SynthesisTimeout string `json:"synthesis_timeout,omitempty"`
	// Model/Voice/Speed select the synthesis voice. Defaults: tts-1/alloy/0.7.
	Model string  `json:"model,omitempty"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
	// BaseURL overrides the synthesis API endpoint (OpenAI-compatible).
	BaseURL string `json:"base_url,omitempty"`
}

// DigestConfig posts a periodic summary of unresolved afterstream notes
// to the stream chat. Off by default.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron expression, e.g. "0 9 * * *".
	Schedule string `json:"schedule,omitempty"`
	MaxItems int    `json:"max_items,omitempty"`
}

type CommandsConfig struct {
	// Disabled lists command names registered but not dispatchable.
	// A disabled command is indistinguishable from an unknown one.
	Disabled []string `json:"disabled,omitempty"`
}
