package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the database filename created inside the data directory.
const DBFile = "sessions.db"

// SQLiteStore persists sessions in SQLite so transcripts survive a restart.
// It applies exactly the same expiry rules as MemoryStore: timestamps are
// stored as unix milliseconds and compared against the injected clock.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) dataDir/sessions.db with WAL mode and
// runs migrations.
func NewSQLiteStore(dataDir string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("session: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}
	// One connection serializes writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("session: pragma %q: %w", p, err)
		}
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &SQLiteStore{db: db, opts: o}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT    PRIMARY KEY,
			turns        INTEGER NOT NULL DEFAULT 0,
			bytes        INTEGER NOT NULL DEFAULT 0,
			created_at   INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL,
			expires_at   INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS turns (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT    NOT NULL,
			role       TEXT    NOT NULL,
			text       TEXT    NOT NULL,
			at         INTEGER NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expires_at);
	`)
	return err
}

// AppendTurn appends a turn inside a transaction, replacing an expired
// session with a fresh one.
func (s *SQLiteStore) AppendTurn(id string, role Role, text string) error {
	if !role.Valid() {
		return fmt.Errorf("session: invalid role %q", role)
	}

	now := s.opts.now()
	nowMs := now.UnixMilli()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("session: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var expiresAt int64
	err = tx.QueryRow(`SELECT expires_at FROM sessions WHERE id = ?`, id).Scan(&expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := insertSession(tx, id, nowMs); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("session: lookup %q: %w", id, err)
	case nowMs >= expiresAt:
		if err := deleteSession(tx, id); err != nil {
			return err
		}
		if err := insertSession(tx, id, nowMs); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO turns (session_id, role, text, at) VALUES (?, ?, ?, ?)`,
		id, string(role), text, nowMs,
	); err != nil {
		return fmt.Errorf("session: insert turn: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE sessions
		 SET turns = turns + 1, bytes = bytes + ?, last_used_at = ?, expires_at = ?
		 WHERE id = ?`,
		len(text), nowMs, now.Add(s.opts.ttl).UnixMilli(), id,
	); err != nil {
		return fmt.Errorf("session: update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: commit: %w", err)
	}
	return nil
}

// Transcript returns the ordered turns of a live session.
func (s *SQLiteStore) Transcript(id string) ([]Turn, error) {
	live, err := s.live(id)
	if err != nil {
		return nil, err
	}
	if !live {
		return []Turn{}, nil
	}

	rows, err := s.db.Query(`SELECT role, text, at FROM turns WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("session: query turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns := []Turn{}
	for rows.Next() {
		var (
			role string
			t    Turn
			at   int64
		)
		if err := rows.Scan(&role, &t.Text, &at); err != nil {
			return nil, fmt.Errorf("session: scan turn: %w", err)
		}
		t.Role = Role(role)
		t.At = fromMillis(at)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Clear deletes the session and its turns.
func (s *SQLiteStore) Clear(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("session: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteSession(tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// IDs returns the ids of live sessions in List order.
func (s *SQLiteStore) IDs() ([]string, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.SessionID)
	}
	return ids, nil
}

// List purges expired sessions and returns metadata for the rest.
func (s *SQLiteStore) List() ([]Meta, error) {
	if err := s.purgeExpired(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT id, turns, bytes, created_at, last_used_at, expires_at
		FROM sessions
		WHERE turns > 0
		ORDER BY last_used_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	metas := []Meta{}
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortMeta(metas)
	return metas, nil
}

// Meta returns metadata for a live session.
func (s *SQLiteStore) Meta(id string) (Meta, bool, error) {
	live, err := s.live(id)
	if err != nil || !live {
		return Meta{}, false, err
	}

	row := s.db.QueryRow(`
		SELECT id, turns, bytes, created_at, last_used_at, expires_at
		FROM sessions WHERE id = ?`, id)
	m, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, false, nil
	}
	if err != nil {
		return Meta{}, false, err
	}
	if m.Turns == 0 {
		return Meta{}, false, nil
	}
	return m, true, nil
}

// live reports whether id exists and has not expired, deleting it if it has.
func (s *SQLiteStore) live(id string) (bool, error) {
	var expiresAt int64
	err := s.db.QueryRow(`SELECT expires_at FROM sessions WHERE id = ?`, id).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session: lookup %q: %w", id, err)
	}
	if s.opts.now().UnixMilli() < expiresAt {
		return true, nil
	}
	if err := s.Clear(id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SQLiteStore) purgeExpired() error {
	nowMs := s.opts.now().UnixMilli()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("session: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`DELETE FROM turns WHERE session_id IN (SELECT id FROM sessions WHERE expires_at <= ?)`, nowMs,
	); err != nil {
		return fmt.Errorf("session: purge turns: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, nowMs); err != nil {
		return fmt.Errorf("session: purge sessions: %w", err)
	}
	return tx.Commit()
}

func insertSession(tx *sql.Tx, id string, nowMs int64) error {
	if _, err := tx.Exec(
		`INSERT INTO sessions (id, created_at, last_used_at, expires_at) VALUES (?, ?, ?, ?)`,
		id, nowMs, nowMs, nowMs,
	); err != nil {
		return fmt.Errorf("session: insert session: %w", err)
	}
	return nil
}

func deleteSession(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM turns WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("session: delete turns: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("session: delete session: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeta(row scanner) (Meta, error) {
	var (
		m                         Meta
		created, lastUsed, expiry int64
	)
	if err := row.Scan(&m.SessionID, &m.Turns, &m.Bytes, &created, &lastUsed, &expiry); err != nil {
		return Meta{}, err
	}
	m.CreatedAt = fromMillis(created)
	m.LastUsedAt = fromMillis(lastUsed)
	m.ExpiresAt = fromMillis(expiry)
	return m, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
