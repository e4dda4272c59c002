// Package store persists the address book and notebook in SQLite.
// Two drivers are supported: "sqlite3" (mattn/go-sqlite3, cgo) and
// "sqlite" (modernc.org/sqlite, pure Go). Both read the same file format.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"assistbot/internal/contacts"
	"assistbot/internal/logging"
	"assistbot/internal/notes"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names as registered with database/sql.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// SchemaVersion is stored in PRAGMA user_version.
// v1: contacts and notes tables with JSON list columns
const SchemaVersion = 1

// slowOpThreshold is the duration above which Load and Save log a warning.
const slowOpThreshold = 500 * time.Millisecond

var (
	ErrUnknownDriver = errors.New("unknown sqlite driver")

	// ErrConflict is returned by Save when another process committed to the
	// database after the last Load. Nothing is written; reload and retry.
	ErrConflict = errors.New("database was changed by another process")
)

// Store manages the assistant database.
type Store struct {
	db          *sql.DB
	dbPath      string
	driver      string
	mu          sync.Mutex
	dataVersion int64 // baseline for Changed
	haveVersion bool
	syncedAt    int64 // data_version the caller's snapshot was loaded at
}

// Open creates or opens the database at path.
func Open(path, driver string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if driver == "" {
		driver = DriverMattn
	}
	if driver != DriverMattn && driver != DriverModernc {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	logging.Store("Opening %s database at %s", driver, path)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: PRAGMA data_version is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("%s failed: %v", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path, driver: driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := s.Changed(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	s.syncedAt = s.dataVersion
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// initSchema creates the tables and records the schema version.
func (s *Store) initSchema() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", version, SchemaVersion)
	}

	schema := `
	-- Contacts in address book order
	CREATE TABLE IF NOT EXISTS contacts (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL UNIQUE,
		phones_json TEXT NOT NULL DEFAULT '[]',
		emails_json TEXT NOT NULL DEFAULT '[]',
		birthday TEXT,
		address TEXT NOT NULL DEFAULT ''
	);

	-- Notes in notebook order
	CREATE TABLE IF NOT EXISTS notes (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		text TEXT NOT NULL,
		tags_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if version < SchemaVersion {
		logging.Store("Migrating schema v%d -> v%d", version, SchemaVersion)
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}
	return nil
}

// Load reads the stored address book and notebook. Later Saves conflict
// only with writes made by other processes after this call.
func (s *Store) Load(ctx context.Context) (*contacts.AddressBook, *notes.Notebook, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Load")
	defer timer.StopWithThreshold(slowOpThreshold)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Read the version first: a write racing the queries below then causes
	// a spurious conflict, never a lost one.
	version, err := s.readDataVersion(ctx, s.db)
	if err != nil {
		return nil, nil, err
	}
	book, err := s.loadContacts(ctx)
	if err != nil {
		logging.StoreError("Load contacts: %v", err)
		return nil, nil, err
	}
	nb, err := s.loadNotes(ctx)
	if err != nil {
		logging.StoreError("Load notes: %v", err)
		return nil, nil, err
	}
	s.syncedAt = version
	logging.Store("Loaded %d contacts and %d notes", book.Len(), nb.Len())
	return book, nb, nil
}

func (s *Store) loadContacts(ctx context.Context) (*contacts.AddressBook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phones_json, emails_json, birthday, address
		FROM contacts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	book := contacts.NewAddressBook()
	for rows.Next() {
		var (
			r                      contacts.Record
			phonesJSON, emailsJSON string
			birthday               sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &phonesJSON, &emailsJSON, &birthday, &r.Address); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if err := json.Unmarshal([]byte(phonesJSON), &r.Phones); err != nil {
			return nil, fmt.Errorf("contact %q: bad phones: %w", r.Name, err)
		}
		if err := json.Unmarshal([]byte(emailsJSON), &r.Emails); err != nil {
			return nil, fmt.Errorf("contact %q: bad emails: %w", r.Name, err)
		}
		r.Phones = orNil(r.Phones)
		r.Emails = orNil(r.Emails)
		if birthday.Valid && birthday.String != "" {
			b, err := contacts.ParseBirthday(birthday.String)
			if err != nil {
				return nil, fmt.Errorf("contact %q: %w", r.Name, err)
			}
			r.Birthday = &b
		}
		book.Add(&r)
	}
	return book, rows.Err()
}

func (s *Store) loadNotes(ctx context.Context) (*notes.Notebook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, tags_json, created_at
		FROM notes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	nb := notes.NewNotebook()
	for rows.Next() {
		var (
			n                  notes.Note
			tagsJSON, created string
		)
		if err := rows.Scan(&n.ID, &n.Text, &tagsJSON, &created); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
			return nil, fmt.Errorf("note %s: bad tags: %w", n.ID, err)
		}
		n.Tags = orNil(n.Tags)
		if n.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("note %s: bad created_at: %w", n.ID, err)
		}
		nb.Append(&n)
	}
	return nb, rows.Err()
}

// Save replaces the stored data with book and nb in a single transaction.
// It returns ErrConflict without writing when another process committed
// since the last Load.
func (s *Store) Save(ctx context.Context, book *contacts.AddressBook, nb *notes.Notebook) error {
	timer := logging.StartTimer(logging.CategoryStore, "Save")
	defer timer.StopWithThreshold(slowOpThreshold)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, book, nb); err != nil {
		if errors.Is(err, ErrConflict) {
			logging.Store("Save skipped: %v", err)
		} else {
			logging.StoreError("Save: %v", err)
		}
		return err
	}
	logging.StoreDebug("Saved %d contacts and %d notes", book.Len(), nb.Len())
	return nil
}

func (s *Store) save(ctx context.Context, book *contacts.AddressBook, nb *notes.Notebook) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	// IMMEDIATE takes the write lock now, so no other writer can commit
	// between the version check and our commit.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	version, err := s.readDataVersion(ctx, conn)
	if err != nil {
		return err
	}
	if version != s.syncedAt {
		return ErrConflict
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM contacts"); err != nil {
		return fmt.Errorf("failed to clear contacts: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM notes"); err != nil {
		return fmt.Errorf("failed to clear notes: %w", err)
	}

	contactStmt, err := conn.PrepareContext(ctx, `
		INSERT INTO contacts (position, id, name, phones_json, emails_json, birthday, address)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare contact insert: %w", err)
	}
	defer contactStmt.Close()

	for i, r := range book.Records() {
		phonesJSON, _ := json.Marshal(orEmpty(r.Phones))
		emailsJSON, _ := json.Marshal(orEmpty(r.Emails))
		var birthday sql.NullString
		if r.Birthday != nil {
			birthday = sql.NullString{String: r.Birthday.String(), Valid: true}
		}
		if _, err := contactStmt.ExecContext(ctx, i, r.ID, r.Name,
			string(phonesJSON), string(emailsJSON), birthday, r.Address); err != nil {
			return fmt.Errorf("failed to save contact %q: %w", r.Name, err)
		}
	}

	noteStmt, err := conn.PrepareContext(ctx, `
		INSERT INTO notes (position, id, text, tags_json, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare note insert: %w", err)
	}
	defer noteStmt.Close()

	for i, n := range nb.Notes() {
		tagsJSON, _ := json.Marshal(orEmpty(n.Tags))
		if _, err := noteStmt.ExecContext(ctx, i, n.ID, n.Text,
			string(tagsJSON), n.CreatedAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to save note %s: %w", n.ID, err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	committed = true
	return nil
}

// querier is satisfied by *sql.DB and *sql.Conn.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) readDataVersion(ctx context.Context, q querier) (int64, error) {
	var v int64
	if err := q.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read data_version: %w", err)
	}
	return v, nil
}

// Changed reports whether another connection committed to the database since
// the previous call. The first call after Open only records the baseline.
func (s *Store) Changed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.readDataVersion(ctx, s.db)
	if err != nil {
		return false, err
	}
	changed := s.haveVersion && v != s.dataVersion
	s.dataVersion = v
	s.haveVersion = true
	return changed, nil
}

func orNil[S ~[]E, E any](items S) S {
	if len(items) == 0 {
		return nil
	}
	return items
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
