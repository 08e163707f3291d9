// Package tts turns chat text into speech audio.
package tts

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	logx "castbot/pkg/logx"
)

// Synthesizer produces an audio clip for the given text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Config struct {
	// APIKey for the OpenAI-compatible speech endpoint.
	APIKey string
	// BaseURL overrides the API endpoint. Empty means the OpenAI default.
	BaseURL string
	// Model selects the synthesis model. Empty means "tts-1".
	Model string
	// Voice selects the synthesis voice. Empty means "alloy".
	Voice string
	// Speed of the generated speech. 0 means 0.7.
	Speed float64
}

type openaiSynthesizer struct {
	cfg    Config
	log    logx.Logger
	client *openai.Client
}

// New returns an OpenAI-backed Synthesizer.
func New(cfg Config, log logx.Logger) (Synthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("tts api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceAlloy)
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 0.7
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	cc := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	}
	return &openaiSynthesizer{
		cfg:    cfg,
		log:    log,
		client: openai.NewClientWithConfig(cc),
	}, nil
}

func (s *openaiSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty synthesis input")
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(s.cfg.Model),
		Input: text,
		Voice: openai.SpeechVoice(s.cfg.Voice),
		Speed: s.cfg.Speed,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("synthesis returned no audio")
	}
	s.log.Debug("speech synthesized",
		logx.Int("text_len", len(text)),
		logx.Int("audio_bytes", len(audio)))
	return audio, nil
}
