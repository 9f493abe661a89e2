// Package store handles SQLite persistence of the session history.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for trial and dispatch history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trials (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			stage TEXT NOT NULL,
			cue_char TEXT NOT NULL,
			cue_index INTEGER NOT NULL,
			columns INTEGER NOT NULL,
			patches INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS dispatches (
			id INTEGER PRIMARY KEY,
			at TEXT NOT NULL,
			target TEXT NOT NULL,
			text TEXT NOT NULL,
			ok INTEGER NOT NULL,
			error TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trials_started_at ON trials(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_at ON dispatches(at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Trial is one stored trial boundary.
type Trial struct {
	ID        int64
	StartedAt time.Time
	Stage     string
	CueChar   string
	CueIndex  int
	Columns   int
	Patches   int
}

// Dispatch is one stored keystroke dispatch attempt.
type Dispatch struct {
	ID     int64
	At     time.Time
	Target string
	Text   string
	OK     bool
	Error  string
}

// InsertTrial stores one trial boundary.
func (s *Store) InsertTrial(ctx context.Context, t Trial) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trials (started_at, stage, cue_char, cue_index, columns, patches)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.StartedAt.Format(time.RFC3339Nano), t.Stage, t.CueChar, t.CueIndex, t.Columns, t.Patches)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertDispatch stores one dispatch attempt.
func (s *Store) InsertDispatch(ctx context.Context, d Dispatch) (int64, error) {
	ok := 0
	if d.OK {
		ok = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches (at, target, text, ok, error) VALUES (?, ?, ?, ?, ?)`,
		d.At.Format(time.RFC3339Nano), d.Target, d.Text, ok, d.Error)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentTrials returns the latest trials, newest first.
func (s *Store) RecentTrials(ctx context.Context, limit int) ([]Trial, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, stage, cue_char, cue_index, columns, patches
		 FROM trials ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var trials []Trial
	for rows.Next() {
		var t Trial
		var startedAt string
		if err := rows.Scan(&t.ID, &startedAt, &t.Stage, &t.CueChar, &t.CueIndex, &t.Columns, &t.Patches); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		t.StartedAt = parsed
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trials, nil
}

// RecentDispatches returns the latest dispatch attempts, newest first.
func (s *Store) RecentDispatches(ctx context.Context, limit int) ([]Dispatch, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, target, text, ok, error
		 FROM dispatches ORDER BY at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var dispatches []Dispatch
	for rows.Next() {
		var d Dispatch
		var at string
		var ok int
		if err := rows.Scan(&d.ID, &at, &d.Target, &d.Text, &ok, &d.Error); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		d.At = parsed
		d.OK = ok != 0
		dispatches = append(dispatches, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dispatches, nil
}
