package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "castbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) CreateAfterstreamNote(ctx context.Context, message string, at time.Time) (AfterstreamNote, error) {
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO afterstream_notes(message, created_at, resolved) VALUES(?,?,0)`,
		message, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return AfterstreamNote{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return AfterstreamNote{}, err
	}
	return AfterstreamNote{ID: id, Message: message, CreatedAt: at, Resolved: false}, nil
}

func (s *sqliteStore) UnresolvedNotes(ctx context.Context) ([]AfterstreamNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, created_at, resolved
		   FROM afterstream_notes
		  WHERE resolved = 0
		  ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AfterstreamNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ResolveNote(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE afterstream_notes SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) CreateTTSRequest(ctx context.Context, username, message string, at time.Time) (TTSRequest, error) {
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tts_requests(username, message, timestamp, read) VALUES(?,?,?,0)`,
		username, message, at.UnixMilli(),
	)
	if err != nil {
		return TTSRequest{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return TTSRequest{}, err
	}
	return TTSRequest{ID: id, Username: username, Message: message, Timestamp: at, Read: false}, nil
}

func (s *sqliteStore) OldestUnreadTTSRequest(ctx context.Context) (*TTSRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, message, timestamp, read
		   FROM tts_requests
		  WHERE read = 0
		  ORDER BY timestamp ASC
		  LIMIT 1`)

	var (
		r  TTSRequest
		ms int64
		rd int
	)
	err := row.Scan(&r.ID, &r.Username, &r.Message, &ms, &rd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Timestamp = time.UnixMilli(ms)
	r.Read = rd != 0
	return &r, nil
}

func (s *sqliteStore) MarkTTSRequestRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tts_requests SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNote(rows *sql.Rows) (AfterstreamNote, error) {
	var (
		n   AfterstreamNote
		at  string
		res int
	)
	if err := rows.Scan(&n.ID, &n.Message, &at, &res); err != nil {
		return AfterstreamNote{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return AfterstreamNote{}, fmt.Errorf("bad created_at %q: %w", at, err)
	}
	n.CreatedAt = t
	n.Resolved = res != 0
	return n, nil
}
