package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	app "github.com/etitcombe/workjournal"
	_ "github.com/mattn/go-sqlite3" // sqlite
)

//go:embed migration/*.sql
var migrations embed.FS

// EntryStore stores journal entries in sqlite.
type EntryStore struct {
	db  *sql.DB
	dsn string
}

// NewEntryStore creates a new instance of an EntryStore.
func NewEntryStore(dsn string) (*EntryStore, error) {
	return &EntryStore{dsn: dsn}, nil
}

// Open opens the connection to the database.
func (s *EntryStore) Open() error {
	// Ensure a DSN is set before attempting to open the database.
	if s.dsn == "" {
		return fmt.Errorf("dsn required")
	}

	// Make the parent directory unless using an in-memory db.
	if s.dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.dsn), 0700); err != nil {
			return err
		}
	}

	var err error
	if s.db, err = sql.Open("sqlite3", s.dsn); err != nil {
		return err
	}
	// Every connection to :memory: is its own database.
	if s.dsn == ":memory:" {
		s.db.SetMaxOpenConns(1)
	}

	if _, err := s.db.Exec(`PRAGMA journal_mode = wal;`); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("foreign keys pragma: %w", err)
	}

	if err := s.migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// Close closes the connection to the data store.
func (s *EntryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Create inserts e and returns it with the id assigned by the database.
func (s *EntryStore) Create(ctx context.Context, e app.Entry) (app.Entry, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO entry (date, type, text) VALUES (?, ?, ?)`,
		storedDate(e.Date), string(e.Type), e.Text)
	if err != nil {
		return app.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return app.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	e.ID = id
	e.Date = storedDate(e.Date)
	return e, nil
}

// Get gets an entry by its id.
func (s *EntryStore) Get(ctx context.Context, id int64) (app.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, date, type, text FROM entry WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return app.Entry{}, app.ErrNotFound
	}
	if err != nil {
		return app.Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// List gets every entry in insertion order.
func (s *EntryStore) List(ctx context.Context) ([]app.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, date, type, text FROM entry ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []app.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Update replaces the date, type and text of the entry with e.ID.
func (s *EntryStore) Update(ctx context.Context, e app.Entry) (app.Entry, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE entry SET date = ?, type = ?, text = ? WHERE id = ?`,
		storedDate(e.Date), string(e.Type), e.Text, e.ID)
	if err != nil {
		return app.Entry{}, fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	if err := oneRow(res); err != nil {
		return app.Entry{}, err
	}
	e.Date = storedDate(e.Date)
	return e, nil
}

// Delete deletes the entry with id from the database.
func (s *EntryStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entry WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return oneRow(res)
}

// Count returns the number of stored entries.
func (s *EntryStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entry`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (app.Entry, error) {
	var (
		e   app.Entry
		typ string
	)
	if err := row.Scan(&e.ID, &e.Date, &typ, &e.Text); err != nil {
		return app.Entry{}, err
	}
	// Unknown types are kept as-is; grouping leaves them out.
	e.Type = app.EntryType(typ)
	e.Date = e.Date.UTC()
	return e, nil
}

func oneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return app.ErrNotFound
	}
	return nil
}

// storedDate truncates t to UTC midnight of its calendar day.
func storedDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// migrate sets up migration tracking and executes pending migration files.
//
// Migration files are embedded from the migration folder and are executed
// in lexigraphical order.
//
// Once a migration is run, its name is stored in the 'migrations' table so it
// is not re-executed. Migrations run in a transaction to prevent partial
// migrations.
func (s *EntryStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("cannot create migrations table: %w", err)
	}

	names, err := fs.Glob(migrations, "migration/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.migrateFile(name); err != nil {
			return fmt.Errorf("migration error: name=%q err=%w", name, err)
		}
	}
	return nil
}

// migrateFile runs a single migration file within a transaction. On success,
// the migration file name is saved to the "migrations" table to prevent
// re-running.
func (s *EntryStore) migrateFile(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM migrations WHERE name = ?`, name).Scan(&n); err != nil {
		return err
	} else if n != 0 {
		return nil // already run migration, skip
	}

	if buf, err := migrations.ReadFile(name); err != nil {
		return err
	} else if _, err := tx.Exec(string(buf)); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO migrations (name) VALUES (?)`, name); err != nil {
		return err
	}

	return tx.Commit()
}
