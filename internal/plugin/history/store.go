package history

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrUnknown is returned for a nickname never recorded on a channel.
var ErrUnknown = errors.New("unknown nickname")

// Entry is what we know about a nickname on one channel.
type Entry struct {
	Nickname string
	Seen     time.Time
	Said     time.Time
	Message  string
}

// Store keeps the history in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Seen records that nickname was present at t.
func (s *Store) Seen(server, channel, nickname string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO history (server, channel, nickname, seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (server, channel, nickname) DO UPDATE SET seen = excluded.seen
	`, key(server), key(channel), key(nickname), t.Unix())
	if err != nil {
		return fmt.Errorf("failed to record seen: %w", err)
	}
	return nil
}

// Said records a message from nickname, which also counts as seen.
func (s *Store) Said(server, channel, nickname, message string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO history (server, channel, nickname, seen, said, message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (server, channel, nickname) DO UPDATE SET
			seen = excluded.seen,
			said = excluded.said,
			message = excluded.message
	`, key(server), key(channel), key(nickname), t.Unix(), t.Unix(), message)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

// Get returns the entry of nickname on channel, or ErrUnknown.
func (s *Store) Get(server, channel, nickname string) (Entry, error) {
	var seen, said int64
	e := Entry{Nickname: nickname}

	err := s.db.QueryRow(`
		SELECT seen, said, message FROM history
		WHERE server = ? AND channel = ? AND nickname = ?
	`, key(server), key(channel), key(nickname)).Scan(&seen, &said, &e.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknown, nickname)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query history: %w", err)
	}

	if seen > 0 {
		e.Seen = time.Unix(seen, 0)
	}
	if said > 0 {
		e.Said = time.Unix(said, 0)
	}
	return e, nil
}

func key(s string) string {
	return strings.ToLower(s)
}
