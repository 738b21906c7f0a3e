package storage

import (
	"context"
	"testing"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:", "connections", "keys")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// TestInsertVisibleToListByKey verifies read-your-writes: a connection is
// visible to lookups as soon as Insert returns.
func TestInsertVisibleToListByKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "conn-1", "key-a"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	ids, err := store.ListByKey(ctx, "key-a")
	if err != nil {
		t.Fatalf("ListByKey failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "conn-1" {
		t.Errorf("expected [conn-1], got %v", ids)
	}
}

// TestInsertIdempotent verifies re-inserting the same connection is a no-op.
func TestInsertIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.Insert(ctx, "conn-1", "key-a"); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	ids, err := store.ListByKey(ctx, "key-a")
	if err != nil {
		t.Fatalf("ListByKey failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected 1 connection after duplicate insert, got %d", len(ids))
	}
}

// TestDeleteIdempotent verifies deleting twice produces the same end state
// as deleting once, with no error on the second call.
func TestDeleteIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "conn-1", "key-a"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.Delete(ctx, "conn-1"); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "conn-1"); err != nil {
		t.Errorf("second Delete should be a no-op, got error: %v", err)
	}

	ids, err := store.ListByKey(ctx, "key-a")
	if err != nil {
		t.Fatalf("ListByKey failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no connections after delete, got %v", ids)
	}
}

// TestDeleteAbsent verifies deleting a never-inserted ID is not an error.
func TestDeleteAbsent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Delete(context.Background(), "never-existed"); err != nil {
		t.Errorf("Delete of absent ID should not error, got: %v", err)
	}
}

// TestListByKeyScopesToKey verifies connections for other keys are not
// included in a key-scoped listing.
func TestListByKeyScopesToKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserts := map[string]string{
		"conn-1": "key-a",
		"conn-2": "key-a",
		"conn-3": "key-b",
	}
	for id, key := range inserts {
		if err := store.Insert(ctx, id, key); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	ids, err := store.ListByKey(ctx, "key-a")
	if err != nil {
		t.Fatalf("ListByKey failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 connections for key-a, got %v", ids)
	}
	for _, id := range ids {
		if id == "conn-3" {
			t.Errorf("conn-3 belongs to key-b, should not appear for key-a")
		}
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 connections total, got %v", all)
	}
}

// TestEmptyProbe verifies the existence probe tracks inserts and deletes.
func TestEmptyProbe(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.Empty(ctx)
	if err != nil {
		t.Fatalf("Empty failed: %v", err)
	}
	if !empty {
		t.Errorf("fresh store should be empty")
	}

	if err := store.Insert(ctx, "conn-1", "key-a"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	empty, err = store.Empty(ctx)
	if err != nil {
		t.Fatalf("Empty failed: %v", err)
	}
	if empty {
		t.Errorf("store with one connection should not be empty")
	}

	if err := store.Delete(ctx, "conn-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	empty, err = store.Empty(ctx)
	if err != nil {
		t.Fatalf("Empty failed: %v", err)
	}
	if !empty {
		t.Errorf("store should be empty after last delete")
	}
}

// TestKeyLookup verifies key persistence and exact-match lookup.
func TestKeyLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.HasKey(ctx, "unknown")
	if err != nil {
		t.Fatalf("HasKey failed: %v", err)
	}
	if ok {
		t.Errorf("unknown key should not validate")
	}

	if err := store.PutKey(ctx, "key-a"); err != nil {
		t.Fatalf("PutKey failed: %v", err)
	}

	ok, err = store.HasKey(ctx, "key-a")
	if err != nil {
		t.Fatalf("HasKey failed: %v", err)
	}
	if !ok {
		t.Errorf("stored key should validate")
	}

	// Lookup is exact-match; a prefix must not validate.
	ok, err = store.HasKey(ctx, "key-")
	if err != nil {
		t.Fatalf("HasKey failed: %v", err)
	}
	if ok {
		t.Errorf("prefix of a stored key should not validate")
	}
}

// TestInvalidTableName verifies table identifiers are validated at open.
func TestInvalidTableName(t *testing.T) {
	if _, err := NewSQLiteStore(":memory:", "bad name; drop", "keys"); err == nil {
		t.Errorf("expected error for invalid connections table name")
	}
	if _, err := NewSQLiteStore(":memory:", "connections", "keys--"); err == nil {
		t.Errorf("expected error for invalid keys table name")
	}
}
