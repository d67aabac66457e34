package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-go-golems/chatmemory/pkg/turns"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const sqliteTurnsSchemaV1 = `
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    model TEXT NULL,
    timestamp_ns INTEGER NOT NULL
);
`

const sqliteTurnsIndexV1 = `
CREATE INDEX IF NOT EXISTS idx_turns_session_ts ON turns (session_id ASC, timestamp_ns ASC);
`

// SQLiteStore persists turns in a local SQLite database. It is meant for
// running without a document store, e.g. offline or in tests.
type SQLiteStore struct {
	mu     sync.RWMutex
	dsn    string
	db     *sql.DB
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite history store: empty dsn")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: open")
	}

	s := &SQLiteStore{
		dsn: dsn,
		db:  db,
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func SQLiteDSNForFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("sqlite history store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func (s *SQLiteStore) Append(ctx context.Context, turn *turns.Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	var model sql.NullString
	if turn.Model != nil {
		model = sql.NullString{String: *turn.Model, Valid: true}
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO turns (session_id, role, content, model, timestamp_ns) VALUES (?, ?, ?, ?, ?)`,
		turn.SessionID,
		string(turn.Role),
		turn.Content,
		model,
		turn.Timestamp.UTC().UnixNano(),
	)
	if err != nil {
		return errors.Wrap(err, "sqlite history store: insert turn")
	}
	return nil
}

func (s *SQLiteStore) FetchRecent(ctx context.Context, sessionID string, limit int) ([]*turns.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*turns.Turn{}, nil
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT session_id, role, content, model, timestamp_ns FROM turns
WHERE session_id = ?
ORDER BY timestamp_ns DESC, id DESC
LIMIT ?`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: query turns")
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []*turns.Turn{}
	for rows.Next() {
		var (
			t     turns.Turn
			role  string
			model sql.NullString
			ts    int64
		)
		if err := rows.Scan(&t.SessionID, &role, &t.Content, &model, &ts); err != nil {
			return nil, errors.Wrap(err, "sqlite history store: scan turn")
		}
		t.Role = turns.Role(role)
		if model.Valid {
			m := model.String
			t.Model = &m
		}
		t.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite history store: iterate turns")
	}

	reverse(out)
	return out, nil
}

func (s *SQLiteStore) EnsureIndexes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteTurnsIndexV1); err != nil {
		return errors.Wrap(err, "sqlite history store: create index")
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	if s.db == nil {
		return fmt.Errorf("sqlite history store: db is nil")
	}
	if _, err := s.db.Exec(sqliteTurnsSchemaV1); err != nil {
		return errors.Wrap(err, "sqlite history store: migrate")
	}
	return nil
}

func (s *SQLiteStore) ensureOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	if s.db == nil {
		return fmt.Errorf("sqlite history store db is nil")
	}
	return nil
}
