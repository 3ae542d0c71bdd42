// Package tasklog persists one line per finished processing task.
package tasklog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/javajack/xlmap"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	task_uuid     TEXT    NOT NULL,
	owner_id      TEXT    NOT NULL DEFAULT '',
	template_name TEXT    NOT NULL DEFAULT '',
	status        TEXT    NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_log_created ON task_log(created_at);
`

// Entry is one task log line.
type Entry struct {
	ID           int64  `db:"id"`
	TaskID       string `db:"task_uuid"`
	OwnerID      string `db:"owner_id"`
	TemplateName string `db:"template_name"`
	Status       string `db:"status"`
	CreatedAt    int64  `db:"created_at"` // unix milliseconds
}

// Created returns the entry time.
func (e Entry) Created() time.Time {
	return time.UnixMilli(e.CreatedAt)
}

// Store is the task log on SQLite. It implements xlmap.TaskLogger.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ xlmap.TaskLogger = (*Store)(nil)

// Open opens (creating if needed) the task log database at path. ":memory:"
// gives a private in-memory log.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create task log directory: %w", err)
			}
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open task log: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create task log schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Record appends a log line.
func (s *Store) Record(taskID, ownerID, status, templateName string) error {
	_, err := s.db.NamedExec(`
		INSERT INTO task_log (task_uuid, owner_id, template_name, status, created_at)
		VALUES (:task_uuid, :owner_id, :template_name, :status, :created_at)`,
		Entry{
			TaskID:       taskID,
			OwnerID:      ownerID,
			TemplateName: templateName,
			Status:       status,
			CreatedAt:    s.now().UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("record task %s: %w", taskID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(limit int) ([]Entry, error) {
	query := `SELECT id, task_uuid, owner_id, template_name, status, created_at
		FROM task_log ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var entries []Entry
	if err := s.db.Select(&entries, query, args...); err != nil {
		return nil, fmt.Errorf("list task log: %w", err)
	}
	return entries, nil
}

// ForTask returns the entries of one task, oldest first.
func (s *Store) ForTask(taskID string) ([]Entry, error) {
	var entries []Entry
	err := s.db.Select(&entries, `SELECT id, task_uuid, owner_id, template_name, status, created_at
		FROM task_log WHERE task_uuid = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("read task log for %s: %w", taskID, err)
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
