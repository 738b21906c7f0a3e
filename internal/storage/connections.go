package storage

// connections.go contains SQLiteStore methods for the connection table.
// A row maps a gateway-assigned connection ID to the API key that
// authorized it.

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Insert records a connection and its associated key.
// Uses INSERT OR REPLACE so that a repeated insert for the same
// connection ID is a no-op rather than an error.
func (s *SQLiteStore) Insert(ctx context.Context, connectionID, associatedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("storage: inserting connection %s", connectionID)

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (connection_id, associated_key, created_at)
		VALUES (?, ?, ?)
	`, s.connectionsTable)

	_, err := s.db.ExecContext(ctx, query,
		connectionID,
		associatedKey,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}

	return nil
}

// Delete removes a connection record.
// Returns nil if the connection does not exist (idempotent delete).
func (s *SQLiteStore) Delete(ctx context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("storage: deleting connection %s", connectionID)

	query := fmt.Sprintf("DELETE FROM %s WHERE connection_id = ?", s.connectionsTable)
	if _, err := s.db.ExecContext(ctx, query, connectionID); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	return nil
}

// ListByKey returns the connection IDs associated with the given key.
func (s *SQLiteStore) ListByKey(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf("SELECT connection_id FROM %s WHERE associated_key = ?", s.connectionsTable)
	return s.queryIDs(ctx, query, key)
}

// ListAll returns every live connection ID.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf("SELECT connection_id FROM %s", s.connectionsTable)
	return s.queryIDs(ctx, query)
}

// Empty reports whether the connection table has no rows.
// Uses an EXISTS probe rather than a count so it stays cheap
// regardless of table size.
func (s *SQLiteStore) Empty(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s)", s.connectionsTable)

	var exists bool
	if err := s.db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("probe connections: %w", err)
	}

	return !exists, nil
}

// queryIDs runs a query whose result set is a single connection_id column.
func (s *SQLiteStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan connection row: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connection rows: %w", err)
	}

	return ids, nil
}
