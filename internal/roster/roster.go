// Package roster keeps the user's saved creatures in a SQLite database.
// It outlives any single battle tab.
package roster

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPath is the roster database location unless configured.
const DefaultPath = ".saves/roster.db"

// Entry is one saved creature.
type Entry struct {
	ID      int
	Name    string
	Image   string
	AddedAt time.Time
}

// Roster is a handle on the roster database.
type Roster struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS favorites (
	id       INTEGER PRIMARY KEY,
	name     TEXT    NOT NULL,
	image    TEXT    NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	added_at INTEGER NOT NULL
)`

// Open opens or creates the roster database at path.
func Open(ctx context.Context, path string) (*Roster, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create roster directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	// One writer at a time keeps SQLite from reporting busy.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping roster: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create roster schema: %w", err)
	}
	return &Roster{db: db}, nil
}

// Close closes the database.
func (r *Roster) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Add saves e. Adding an id that is already saved does nothing and reports
// false.
func (r *Roster) Add(ctx context.Context, e Entry) (bool, error) {
	if e.ID <= 0 {
		return false, fmt.Errorf("invalid id %d", e.ID)
	}
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO favorites (id, name, image, position, added_at)
		SELECT ?, ?, ?, COALESCE(MAX(position), 0) + 1, ? FROM favorites
	`, e.ID, e.Name, e.Image, e.AddedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to add %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Remove drops id from the roster. Removing an unsaved id is not an error.
func (r *Roster) Remove(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove %d: %w", id, err)
	}
	return nil
}

// Has reports whether id is saved.
func (r *Roster) Has(ctx context.Context, id int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up %d: %w", id, err)
	}
	return n > 0, nil
}

// Get returns the saved entry for id, or sql.ErrNoRows.
func (r *Roster) Get(ctx context.Context, id int) (Entry, error) {
	var e Entry
	var added int64
	err := r.db.QueryRowContext(ctx, `SELECT id, name, image, added_at FROM favorites WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Image, &added)
	if err != nil {
		return Entry{}, err
	}
	e.AddedAt = time.UnixMilli(added)
	return e, nil
}

// List returns every saved entry in the order it was added.
func (r *Roster) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, image, added_at FROM favorites ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var added int64
		if err := rows.Scan(&e.ID, &e.Name, &e.Image, &added); err != nil {
			return nil, err
		}
		e.AddedAt = time.UnixMilli(added)
		out = append(out, e)
	}
	return out, rows.Err()
}
