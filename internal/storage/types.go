package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (the default and only driver)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// AfterstreamNote is a message left for the streamer to review after the
// stream ends. Notes are never deleted; a review workflow resolves them.
type AfterstreamNote struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Resolved  bool      `json:"resolved"`
}

// TTSRequest is a queued text-to-speech job. The worker mutates a request
// exactly once, setting Read after audio has been produced.
type TTSRequest struct {
	ID        int64
	Username  string
	Message   string
	Timestamp time.Time
	Read      bool
}

// Store is the persistence API used by commands, the worker, and the
// HTTP surface. It is an append/mark log: no method deletes records.
type Store interface {
	CreateAfterstreamNote(ctx context.Context, message string, at time.Time) (AfterstreamNote, error)
	UnresolvedNotes(ctx context.Context) ([]AfterstreamNote, error)
	ResolveNote(ctx context.Context, id int64) error

	CreateTTSRequest(ctx context.Context, username, message string, at time.Time) (TTSRequest, error)
	// OldestUnreadTTSRequest returns the unread request with the smallest
	// timestamp (FIFO by submission time, not by insertion id), or
	// (nil, nil) when the queue is drained.
	OldestUnreadTTSRequest(ctx context.Context) (*TTSRequest, error)
	MarkTTSRequestRead(ctx context.Context, id int64) error

	Close() error
}
