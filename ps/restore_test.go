package ps

import (
	"errors"
	"testing"
)

func TestSnapshot(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	if err := persistence.Snapshot("v0", nil); err != ErrNoCommits {
		t.Errorf("Expected ErrNoCommits before first write, got %v", err)
	}

	writeDocuments(t, persistence, "users", map[string]string{"1": `{"_id":"1"}`})

	if err := persistence.Snapshot("v1.0.0", nil); err != nil {
		t.Fatalf("Failed to create snapshot: %v", err)
	}

	if _, err := persistence.Recover("v1.0.0"); err != nil {
		t.Fatalf("Failed to recover to snapshot: %v", err)
	}
}

func TestSnapshotAtTransaction(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	first := writeDocuments(t, persistence, "users", map[string]string{"1": `{"_id":"1"}`})
	writeDocuments(t, persistence, "users", map[string]string{"2": `{"_id":"2"}`})

	if err := persistence.Snapshot("before-2", &first); err != nil {
		t.Fatalf("Failed to create snapshot at transaction: %v", err)
	}

	recovered, err := persistence.Recover("before-2")
	if err != nil {
		t.Fatalf("Failed to recover to snapshot: %v", err)
	}
	if recovered.Id != first.Id {
		t.Errorf("Expected HEAD at %s, got %s", first.Id, recovered.Id)
	}

	if persistence.HasDocument("users", "2") {
		t.Error("Expected document 2 to be gone after recovery")
	}
	if !persistence.HasDocument("users", "1") {
		t.Error("Expected document 1 to survive recovery")
	}
}

func TestRecoverUnknownSnapshot(t *testing.T) {
	persistence, _ := NewMemoryPersistence()
	writeDocuments(t, persistence, "users", map[string]string{"1": `{}`})

	if _, err := persistence.Recover("missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestRestoreCollection(t *testing.T) {
	persistence, _ := NewMemoryPersistence()

	first := writeDocuments(t, persistence, "users", map[string]string{
		"1": `{"_id":"1","v":1}`,
		"2": `{"_id":"2","v":1}`,
	})
	writeDocuments(t, persistence, "audit", map[string]string{"a": `{"_id":"a"}`})

	persistence.Lock()
	txn, _ := persistence.BeginTransaction()
	txn.AddWrite("users", "1", []byte(`{"_id":"1","v":2}`))
	txn.AddDelete("users", "2")
	txn.AddWrite("users", "3", []byte(`{"_id":"3","v":1}`))
	txn.Commit(testIdentity, "change users")
	persistence.Unlock()

	restored, err := persistence.RestoreCollection(first, "users", testIdentity)
	if err != nil {
		t.Fatalf("RestoreCollection failed: %v", err)
	}
	if restored.Message != "restore users to "+first.Id[:7] {
		t.Errorf("Unexpected restore message %q", restored.Message)
	}

	data, _ := persistence.ReadDocument("users", "1")
	if string(data) != `{"_id":"1","v":1}` {
		t.Errorf("Expected original document 1, got %s", data)
	}
	if !persistence.HasDocument("users", "2") {
		t.Error("Expected document 2 to be restored")
	}
	if persistence.HasDocument("users", "3") {
		t.Error("Expected document 3 to be removed")
	}

	// Other collections are untouched
	if !persistence.HasDocument("audit", "a") {
		t.Error("Expected audit collection to be untouched")
	}

	// History is kept
	history, err := persistence.Transactions(0)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(history) != 4 {
		t.Errorf("Expected 4 commits, got %d", len(history))
	}

	if _, err := persistence.RestoreCollection(first, "users", testIdentity); err != ErrEmptyTransaction {
		t.Errorf("Expected ErrEmptyTransaction for a no-op restore, got %v", err)
	}
}
