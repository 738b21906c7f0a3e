package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	apiErrors "github.com/compcontrol/api/internal/errors"
)

// fakeRegistry is an in-memory Registry with call counting and injectable
// faults.
type fakeRegistry struct {
	mu          sync.Mutex
	conns       map[string]string // connectionID -> key
	listCalls   int
	listErr     error
	deleteErr   error
	deletedIDs  []string
	emptyResult bool
	emptyErr    error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{conns: make(map[string]string)}
}

func (r *fakeRegistry) add(id, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = key
}

func (r *fakeRegistry) ListByKey(ctx context.Context, key string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var ids []string
	for id, k := range r.conns {
		if k == key {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeRegistry) ListAll(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var ids []string
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeRegistry) Delete(ctx context.Context, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.conns, connectionID)
	r.deletedIDs = append(r.deletedIDs, connectionID)
	return nil
}

func (r *fakeRegistry) Empty(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emptyErr != nil {
		return false, r.emptyErr
	}
	return r.emptyResult, nil
}

// fakePusher records pushes and returns per-target injected errors.
type fakePusher struct {
	mu       sync.Mutex
	payloads map[string][]byte // connectionID -> last payload
	errs     map[string]error  // connectionID -> injected push error
	warms    int
}

func newFakePusher() *fakePusher {
	return &fakePusher{
		payloads: make(map[string][]byte),
		errs:     make(map[string]error),
	}
}

func (p *fakePusher) Push(ctx context.Context, connectionID string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.errs[connectionID]; ok {
		return err
	}
	p.payloads[connectionID] = payload
	return nil
}

func (p *fakePusher) Warm(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warms++
	return nil
}

func (p *fakePusher) pushCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

var testCommands = []string{"sleep", "hibernate", "shutdown", "lock"}

// TestDispatchRejectsUnknownCommand verifies an unlisted command is rejected
// before any registry read or delivery attempt.
func TestDispatchRejectsUnknownCommand(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("conn-1", "key-a")
	pusher := newFakePusher()
	router := NewRouter(reg, pusher, testCommands, 4)

	_, err := router.Dispatch(context.Background(), "key-a", "reboot")
	if !apiErrors.IsCode(err, apiErrors.CodeCommandNotAllowed) {
		t.Errorf("expected %s, got: %v", apiErrors.CodeCommandNotAllowed, err)
	}
	if reg.listCalls != 0 {
		t.Errorf("registry should not be read for a rejected command, got %d reads", reg.listCalls)
	}
	if pusher.pushCount() != 0 {
		t.Errorf("nothing should be delivered for a rejected command")
	}
}

// TestDispatchCaseSensitive verifies the allow-list match is exact.
func TestDispatchCaseSensitive(t *testing.T) {
	router := NewRouter(newFakeRegistry(), newFakePusher(), testCommands, 4)

	_, err := router.Dispatch(context.Background(), "key-a", "Sleep")
	if !apiErrors.IsCode(err, apiErrors.CodeCommandNotAllowed) {
		t.Errorf("allow-list match must be exact, got: %v", err)
	}
}

// TestDispatchNoTargets verifies a key with no live connections yields a
// zero-target result without error.
func TestDispatchNoTargets(t *testing.T) {
	router := NewRouter(newFakeRegistry(), newFakePusher(), testCommands, 4)

	result, err := router.Dispatch(context.Background(), "key-a", "sleep")
	if err != nil {
		t.Fatalf("zero targets is not an error, got: %v", err)
	}
	if result.Targets != 0 {
		t.Errorf("expected 0 targets, got %d", result.Targets)
	}
}

// TestDispatchDeliversToAllKeyConnections verifies a command reaches every
// connection for the caller's key and only those.
func TestDispatchDeliversToAllKeyConnections(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("conn-1", "key-a")
	reg.add("conn-2", "key-a")
	reg.add("conn-3", "key-b")
	pusher := newFakePusher()
	router := NewRouter(reg, pusher, testCommands, 4)

	result, err := router.Dispatch(context.Background(), "key-a", "sleep")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Targets != 2 || result.Delivered != 2 {
		t.Errorf("expected 2/2 delivered, got %+v", result)
	}

	if _, ok := pusher.payloads["conn-3"]; ok {
		t.Errorf("conn-3 belongs to another key and must not receive the command")
	}

	var frame Frame
	if err := json.Unmarshal(pusher.payloads["conn-1"], &frame); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if frame.Type != "command" || frame.Subtype != "sleep" {
		t.Errorf("expected command/sleep frame, got %+v", frame)
	}
}

// TestDispatchPrunesGoneTarget verifies a gone target is deleted from the
// registry and counted pruned, while the remaining targets still deliver.
func TestDispatchPrunesGoneTarget(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("conn-1", "key-a")
	reg.add("conn-2", "key-a")
	reg.add("conn-3", "key-a")
	pusher := newFakePusher()
	pusher.errs["conn-2"] = apiErrors.DeliveryGone("conn-2")
	router := NewRouter(reg, pusher, testCommands, 4)

	result, err := router.Dispatch(context.Background(), "key-a", "lock")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Targets != 3 || result.Delivered != 2 || result.Pruned != 1 || result.Failed != 0 {
		t.Errorf("expected 3 targets, 2 delivered, 1 pruned, got %+v", result)
	}

	if len(reg.deletedIDs) != 1 || reg.deletedIDs[0] != "conn-2" {
		t.Errorf("expected conn-2 pruned from registry, got %v", reg.deletedIDs)
	}
}

// TestDispatchTransientFaultRetainsTarget verifies a transient delivery
// fault is counted failed and the record is kept for future attempts.
func TestDispatchTransientFaultRetainsTarget(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("conn-1", "key-a")
	reg.add("conn-2", "key-a")
	pusher := newFakePusher()
	pusher.errs["conn-1"] = apiErrors.New(apiErrors.CodeDeliveryFailed, "gateway 502")
	router := NewRouter(reg, pusher, testCommands, 4)

	result, err := router.Dispatch(context.Background(), "key-a", "shutdown")
	if err != nil {
		t.Fatalf("per-target faults must not fail the dispatch, got: %v", err)
	}
	if result.Delivered != 1 || result.Failed != 1 || result.Pruned != 0 {
		t.Errorf("expected 1 delivered, 1 failed, got %+v", result)
	}

	if len(reg.deletedIDs) != 0 {
		t.Errorf("transiently failing target must stay registered, deleted: %v", reg.deletedIDs)
	}
}

// TestDispatchRegistryFault verifies a registry read fault surfaces as an
// error with no deliveries.
func TestDispatchRegistryFault(t *testing.T) {
	reg := newFakeRegistry()
	reg.listErr = errors.New("store unreachable")
	pusher := newFakePusher()
	router := NewRouter(reg, pusher, testCommands, 4)

	_, err := router.Dispatch(context.Background(), "key-a", "sleep")
	if !apiErrors.IsCode(err, apiErrors.CodeRegistryQueryFailed) {
		t.Errorf("expected %s, got: %v", apiErrors.CodeRegistryQueryFailed, err)
	}
	if pusher.pushCount() != 0 {
		t.Errorf("nothing should be delivered when the registry read fails")
	}
}
