// Package owncast is the outbound client for the Owncast integrations API.
// Inbound traffic arrives as webhooks handled by internal/server.
package owncast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logx "castbot/pkg/logx"
)

type Config struct {
	// BaseURL of the Owncast instance, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// AccessToken is the integrations API bearer token.
	AccessToken string
	// Timeout bounds a single API call. 0 means 10s.
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("owncast base_url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("owncast base_url: %w", err)
	}
	cfg.BaseURL = base

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg: cfg,
		log: log,
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SendChat posts a message into the stream chat via the integrations API.
func (c *Client) SendChat(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"body": text})
	if err != nil {
		return err
	}

	u := c.cfg.BaseURL + "/api/integrations/chat/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("owncast chat send: %w", err)
	}
	defer func() {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("owncast chat send: unexpected status %d", resp.StatusCode)
	}
	c.log.Debug("chat message sent", logx.Int("len", len(text)))
	return nil
}
