package storage

// keys.go contains SQLiteStore methods for the API key table.
// A key's presence in the table is what makes it valid; revoking a key
// means deleting its row.

import (
	"context"
	"fmt"
	"log"
	"time"
)

// PutKey persists a newly issued API key.
func (s *SQLiteStore) PutKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("storage: saving issued key")

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (key, created_at)
		VALUES (?, ?)
	`, s.keysTable)

	_, err := s.db.ExecContext(ctx, query, key, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save key: %w", err)
	}

	return nil
}

// HasKey reports whether the given token is a currently valid key.
func (s *SQLiteStore) HasKey(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE key = ?)", s.keysTable)

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup key: %w", err)
	}

	return exists, nil
}
