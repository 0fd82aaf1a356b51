package ps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nickyhof/DocQL/core"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func writeDocuments(t *testing.T, p *Persistence, collection string, docs map[string]string) Transaction {
	t.Helper()

	p.Lock()
	defer p.Unlock()

	txn, err := p.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	for id, data := range docs {
		txn.AddWrite(collection, id, []byte(data))
	}

	result, err := txn.Commit(testIdentity, "insert "+collection)
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	return result
}

func TestNewMemoryPersistence(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create memory persistence: %v", err)
	}

	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence Persistence

	if persistence.IsInitialized() {
		t.Error("Expected uninitialized persistence to return false")
	}

	if err := persistence.ensureInitialized(); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}

	if _, err := persistence.BeginTransaction(); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized from BeginTransaction, got %v", err)
	}
}

func TestEmptyRepository(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	collections, err := persistence.Collections()
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	if len(collections) != 0 {
		t.Errorf("Expected no collections, got %v", collections)
	}

	if _, err := persistence.ReadDocument("users", "u1"); err != ErrDocumentNotFound {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}

	for doc, err := range persistence.ScanDocuments("users") {
		t.Errorf("Expected no documents, got %v (%v)", doc, err)
	}

	if txn := persistence.LatestTransaction(); txn.Id != "" {
		t.Errorf("Expected no latest transaction, got %s", txn.Id)
	}
}

func TestFilePersistence(t *testing.T) {
	dir := t.TempDir()

	persistence, err := NewFilePersistence(dir, "")
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	writeDocuments(t, persistence, "users", map[string]string{
		"u1": `{"_id":"u1","name":"Ann"}`,
	})

	onDisk, err := os.ReadFile(filepath.Join(dir, "users", "u1.json"))
	if err != nil {
		t.Fatalf("Expected worktree to be synced: %v", err)
	}
	if string(onDisk) != `{"_id":"u1","name":"Ann"}` {
		t.Errorf("Unexpected worktree content: %s", onDisk)
	}

	// Reopen the same directory
	reopened, err := NewFilePersistence(dir, "")
	if err != nil {
		t.Fatalf("Failed to reopen file persistence: %v", err)
	}

	data, err := reopened.ReadDocument("users", "u1")
	if err != nil {
		t.Fatalf("Failed to read after reopen: %v", err)
	}
	if string(data) != `{"_id":"u1","name":"Ann"}` {
		t.Errorf("Unexpected document after reopen: %s", data)
	}
}

func TestFilePersistenceDeleteLastDocument(t *testing.T) {
	dir := t.TempDir()

	persistence, err := NewFilePersistence(dir, "")
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	writeDocuments(t, persistence, "users", map[string]string{"u1": `{"_id":"u1"}`})

	persistence.Lock()
	txn, _ := persistence.BeginTransaction()
	txn.AddDelete("users", "u1")
	_, err = txn.Commit(testIdentity, "delete users")
	persistence.Unlock()
	if err != nil {
		t.Fatalf("Failed to commit delete: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "users")); !os.IsNotExist(err) {
		t.Errorf("Expected users directory to be removed, got %v", err)
	}
}
