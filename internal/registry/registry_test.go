package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/compcontrol/api/internal/bus"
)

// fakeStore is an in-memory ConnectionStore with injectable failures.
type fakeStore struct {
	mu        sync.Mutex
	conns     map[string]string // connectionID -> key
	insertErr error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{conns: make(map[string]string)}
}

func (s *fakeStore) Insert(ctx context.Context, connectionID, associatedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.conns[connectionID] = associatedKey
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.conns, connectionID)
	return nil
}

func (s *fakeStore) ListByKey(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, k := range s.conns {
		if k == key {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) ListAll(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.conns {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) Empty(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns) == 0, nil
}

// waitForEvent receives one event or fails the test.
func waitForEvent(t *testing.T, ch <-chan bus.Event) bus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
		return bus.Event{}
	}
}

// TestInsertPublishesCreated verifies a successful insert announces a
// connection.created event carrying the connection ID.
func TestInsertPublishesCreated(t *testing.T) {
	store := newFakeStore()
	feed := bus.NewMemoryBus()
	defer feed.Close()
	reg := New(store, feed)
	ctx := context.Background()

	events := make(chan bus.Event, 1)
	feed.Subscribe(ctx, bus.TopicConnectionCreated, func(ctx context.Context, e bus.Event) error {
		events <- e
		return nil
	})

	if err := reg.Insert(ctx, "conn-1", "key-a"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	e := waitForEvent(t, events)
	if e.ConnectionID != "conn-1" {
		t.Errorf("expected event for conn-1, got %s", e.ConnectionID)
	}
	if e.Type != bus.TopicConnectionCreated {
		t.Errorf("expected type %s, got %s", bus.TopicConnectionCreated, e.Type)
	}
	if e.ID == "" {
		t.Errorf("event ID should be set")
	}
}

// TestDeletePublishesDeleted verifies a successful delete announces a
// connection.deleted event.
func TestDeletePublishesDeleted(t *testing.T) {
	store := newFakeStore()
	feed := bus.NewMemoryBus()
	defer feed.Close()
	reg := New(store, feed)
	ctx := context.Background()

	events := make(chan bus.Event, 1)
	feed.Subscribe(ctx, bus.TopicConnectionDeleted, func(ctx context.Context, e bus.Event) error {
		events <- e
		return nil
	})

	if err := reg.Insert(ctx, "conn-1", "key-a"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := reg.Delete(ctx, "conn-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	e := waitForEvent(t, events)
	if e.ConnectionID != "conn-1" {
		t.Errorf("expected event for conn-1, got %s", e.ConnectionID)
	}
}

// TestFailedInsertPublishesNothing verifies no event is announced when the
// store mutation fails.
func TestFailedInsertPublishesNothing(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("store down")
	feed := bus.NewMemoryBus()
	defer feed.Close()
	reg := New(store, feed)
	ctx := context.Background()

	events := make(chan bus.Event, 1)
	feed.Subscribe(ctx, bus.TopicConnectionCreated, func(ctx context.Context, e bus.Event) error {
		events <- e
		return nil
	})

	if err := reg.Insert(ctx, "conn-1", "key-a"); err == nil {
		t.Fatalf("expected insert error")
	}

	select {
	case <-events:
		t.Errorf("no event should be published for a failed insert")
	case <-time.After(100 * time.Millisecond):
	}
}

// TestPublishFailureDoesNotFailMutation verifies a dead feed does not turn a
// committed mutation into an error.
func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	store := newFakeStore()
	feed := bus.NewMemoryBus()
	feed.Close() // publishing will now fail
	reg := New(store, feed)
	ctx := context.Background()

	if err := reg.Insert(ctx, "conn-1", "key-a"); err != nil {
		t.Errorf("Insert should succeed despite publish failure, got: %v", err)
	}

	ids, err := reg.ListByKey(ctx, "key-a")
	if err != nil {
		t.Fatalf("ListByKey failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("connection should be stored despite publish failure, got %v", ids)
	}
}
