package storage

import (
	"fmt"
	"log"
	"regexp"
	"sync"

	// SQLite driver - imported for side effects (registers the driver).
	// Using modernc.org/sqlite which is a pure-Go implementation that
	// doesn't require CGO, making cross-compilation and testing easier.
	"database/sql"

	_ "modernc.org/sqlite"
)

// validTableName restricts injected table identifiers to safe SQL names.
// Table names come from configuration, not from request input, but they are
// interpolated into statements and so are validated once at open time.
var validTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore implements Store using SQLite for persistence.
// It creates the database and tables on first use and supports
// concurrent access through internal locking.
type SQLiteStore struct {
	db *sql.DB      // Database connection handle.
	mu sync.RWMutex // Guards all database operations for thread safety.

	connectionsTable string
	keysTable        string
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// It initializes the schema if the tables don't exist.
// The path should be a file path like "/path/to/compcontrol.db".
// Use ":memory:" for an in-memory database (useful for testing).
func NewSQLiteStore(path, connectionsTable, keysTable string) (*SQLiteStore, error) {
	if !validTableName.MatchString(connectionsTable) {
		return nil, fmt.Errorf("invalid connections table name: %q", connectionsTable)
	}
	if !validTableName.MatchString(keysTable) {
		return nil, fmt.Errorf("invalid keys table name: %q", keysTable)
	}

	log.Printf("storage: opening database at %s", path)

	// Open database with a busy_timeout of 5 seconds to handle concurrent
	// access from the CLI and a running service instance.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify the connection is working.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{
		db:               db,
		connectionsTable: connectionsTable,
		keysTable:        keysTable,
	}

	// Create tables if they don't exist.
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	log.Printf("storage: database ready (tables %s, %s)", connectionsTable, keysTable)
	return store, nil
}

// initSchema creates the connections and keys tables.
// The associated_key index mirrors the key-scoped lookup the command
// dispatch path performs on every request.
func (s *SQLiteStore) initSchema() error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				connection_id  TEXT PRIMARY KEY,
				associated_key TEXT NOT NULL,
				created_at     TEXT NOT NULL
			)`, s.connectionsTable),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_%s_associated_key
				ON %s (associated_key)`, s.connectionsTable, s.connectionsTable),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key        TEXT PRIMARY KEY,
				created_at TEXT NOT NULL
			)`, s.keysTable),
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	log.Printf("storage: closing database")
	return s.db.Close()
}
