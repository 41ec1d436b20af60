package turnlog

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/renandav/livia/pkg/errorsx"
)

const turnSchema = `
CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	at TEXT NOT NULL,
	role TEXT NOT NULL,
	text TEXT NOT NULL,
	is_final INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_turns_at ON turns(at);
CREATE INDEX IF NOT EXISTS idx_turns_role ON turns(role);
`

// cleanupInterval is how many appends pass between retention sweeps.
const cleanupInterval = 256

// SQLiteStore persists turns to a local SQLite file via the pure-Go driver,
// keeping the widget backend CGO-free. Retention trims the table back to
// maxEntries on a periodic sweep.
type SQLiteStore struct {
	db         *sql.DB
	maxEntries int
	appends    atomic.Int64
}

// OpenSQLiteStore opens (or creates) the database at path and applies the
// schema. maxEntries <= 0 keeps 10000 turns.
func OpenSQLiteStore(ctx context.Context, path string, maxEntries int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTurnlogOpen)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errorsx.Wrap(err, errorsx.ReasonTurnlogOpen)
	}
	if _, err := db.ExecContext(ctx, turnSchema); err != nil {
		_ = db.Close()
		return nil, errorsx.Wrap(err, errorsx.ReasonTurnlogOpen)
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &SQLiteStore{db: db, maxEntries: maxEntries}, nil
}

func (s *SQLiteStore) AddTurn(ctx context.Context, t Turn) error {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO turns (at, role, text, is_final) VALUES (?, ?, ?, ?)",
		t.At.UTC().Format(time.RFC3339Nano), string(t.Role), t.Text, boolToInt(t.IsFinal),
	)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTurnlogAppend)
	}
	if s.appends.Add(1)%cleanupInterval == 0 {
		_ = s.Cleanup(ctx)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = s.maxEntries
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT at, role, text, is_final FROM turns ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reversed []Turn
	for rows.Next() {
		var (
			at      string
			role    string
			text    string
			isFinal int
		)
		if err := rows.Scan(&at, &role, &text, &isFinal); err != nil {
			return nil, err
		}
		t := Turn{Role: Role(role), Text: text, IsFinal: isFinal != 0}
		t.At, _ = time.Parse(time.RFC3339Nano, at)
		reversed = append(reversed, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Turn, len(reversed))
	for i, t := range reversed {
		out[len(out)-1-i] = t
	}
	return out, nil
}

// Cleanup trims the table back to maxEntries, oldest first.
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM turns WHERE id NOT IN (SELECT id FROM turns ORDER BY id DESC LIMIT ?)",
		s.maxEntries,
	)
	return err
}

// Count returns the number of stored turns.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM turns").Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)
