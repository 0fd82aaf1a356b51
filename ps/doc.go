// Package ps stores document collections in a Git repository.
//
// Each document is a JSON blob at <collection>/<id>.json and every write
// is a commit, so the full history of a collection can be listed, tagged
// and restored.
//
// Writes bypass the worktree and build trees directly in the object
// store. File-backed repositories sync the worktree after each commit.
//
//	p, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p.Lock()
//	txn, _ := p.BeginTransaction()
//	txn.AddWrite("users", "u1", []byte(`{"_id":"u1","name":"Ann"}`))
//	txn.Commit(identity, "insert users: 1 document")
//	p.Unlock()
//
//	for doc, err := range p.ScanDocuments("users") {
//	    ...
//	}
package ps
