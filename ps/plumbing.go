package ps

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/nickyhof/DocQL/core"
)

// docEdit writes the blob Hash as document Name of Collection, or removes
// that document when Remove is set.
type docEdit struct {
	Collection string
	Name       string
	Hash       plumbing.Hash
	Remove     bool
}

func (p *Persistence) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to open blob: %w", err)
	}
	_, err = w.Write(data)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob: %w", err)
	}

	return p.repo.Storer.SetEncodedObject(obj)
}

func (p *Persistence) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(p.repo.Storer, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", hash, err)
	}

	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", hash, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

func (p *Persistence) commitTree(commitHash plumbing.Hash) (*object.Tree, error) {
	commit, err := p.repo.CommitObject(commitHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", commitHash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of %s: %w", commitHash, err)
	}
	return tree, nil
}

// headTree returns the root tree of HEAD, or ErrNoCommits.
func (p *Persistence) headTree() (*object.Tree, error) {
	head, err := p.repo.Head()
	if err != nil {
		return nil, ErrNoCommits
	}
	return p.commitTree(head.Hash())
}

// branchRef names the branch HEAD points at. A fresh repository has no
// commits yet, but HEAD already refers to its initial branch.
func (p *Persistence) branchRef() plumbing.ReferenceName {
	head, err := p.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return plumbing.Master
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target()
	}
	if head.Name().IsBranch() {
		return head.Name()
	}
	return plumbing.Master
}

// gitOrder sorts tree entries the way git does: a directory compares as if
// its name ended in '/'.
func gitOrder(entry object.TreeEntry) string {
	if entry.Mode == filemode.Dir {
		return entry.Name + "/"
	}
	return entry.Name
}

func (p *Persistence) writeTree(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	tree := &object.Tree{Entries: make([]object.TreeEntry, 0, len(entries))}
	for _, entry := range entries {
		tree.Entries = append(tree.Entries, entry)
	}
	sort.Slice(tree.Entries, func(i, j int) bool {
		return gitOrder(tree.Entries[i]) < gitOrder(tree.Entries[j])
	})

	obj := p.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	return p.repo.Storer.SetEncodedObject(obj)
}

func entryMap(tree *object.Tree) map[string]object.TreeEntry {
	entries := make(map[string]object.TreeEntry)
	if tree == nil {
		return entries
	}
	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}
	return entries
}

// applyEdits writes a new root tree with edits applied on top of root, which
// may be nil. Each touched collection tree is rewritten once, and a
// collection left without documents disappears from the root.
func (p *Persistence) applyEdits(root *object.Tree, edits []docEdit) (plumbing.Hash, error) {
	byCollection := make(map[string][]docEdit)
	for _, edit := range edits {
		byCollection[edit.Collection] = append(byCollection[edit.Collection], edit)
	}

	rootEntries := entryMap(root)
	for collection, changes := range byCollection {
		var current *object.Tree
		if existing, ok := rootEntries[collection]; ok && existing.Mode == filemode.Dir {
			tree, err := object.GetTree(p.repo.Storer, existing.Hash)
			if err != nil {
				return plumbing.ZeroHash, fmt.Errorf("failed to read collection %s: %w", collection, err)
			}
			current = tree
		}

		docs := entryMap(current)
		for _, change := range changes {
			if change.Remove {
				delete(docs, change.Name)
				continue
			}
			docs[change.Name] = object.TreeEntry{Name: change.Name, Mode: filemode.Regular, Hash: change.Hash}
		}

		if len(docs) == 0 {
			delete(rootEntries, collection)
			continue
		}

		hash, err := p.writeTree(docs)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		rootEntries[collection] = object.TreeEntry{Name: collection, Mode: filemode.Dir, Hash: hash}
	}

	return p.writeTree(rootEntries)
}

// commitEdits applies edits to HEAD and commits the result on the current
// branch. Callers hold the write lock.
func (p *Persistence) commitEdits(edits []docEdit, identity core.Identity, message string) (Transaction, error) {
	root, err := p.headTree()
	if err != nil && err != ErrNoCommits {
		return Transaction{}, err
	}

	treeHash, err := p.applyEdits(root, edits)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}
	return p.commit(treeHash, identity, message)
}

func (p *Persistence) commit(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	sig := object.Signature{Name: identity.Name, Email: identity.Email, When: time.Now()}
	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   message,
		TreeHash:  treeHash,
	}
	if head, err := p.repo.Head(); err == nil {
		commit.ParentHashes = []plumbing.Hash{head.Hash()}
	}

	obj := p.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}
	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branch := p.branchRef()
	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, hash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to move %s: %w", branch.Short(), err)
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return Transaction{
		Id:      hash.String(),
		When:    sig.When,
		Author:  identity.String(),
		Message: message,
	}, nil
}

// syncWorktree checks HEAD out into the directory of a file-backed store.
// Memory stores are only read through the object database.
func (p *Persistence) syncWorktree() error {
	if p.memory {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}
	head, err := p.repo.Head()
	if err != nil {
		return err
	}
	tree, err := p.commitTree(head.Hash())
	if err != nil {
		return err
	}

	if len(tree.Entries) > 0 {
		return wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: head.Hash()})
	}

	// Reset will not empty the base directory.
	files, err := wt.Filesystem.ReadDir("/")
	if err != nil {
		return nil
	}
	for _, file := range files {
		if file.Name() != ".git" {
			removeAll(wt.Filesystem, file.Name())
		}
	}
	return nil
}

func removeAll(fs billy.Filesystem, name string) {
	if children, err := fs.ReadDir(name); err == nil {
		for _, child := range children {
			removeAll(fs, fs.Join(name, child.Name()))
		}
	}
	fs.Remove(name)
}

// subtreeEntries lists the documents directly under dir. A missing directory
// has none.
func subtreeEntries(tree *object.Tree, dir string) []object.TreeEntry {
	sub, err := tree.Tree(dir)
	if err != nil {
		return nil
	}

	var entries []object.TreeEntry
	for _, entry := range sub.Entries {
		if entry.Mode != filemode.Dir {
			entries = append(entries, entry)
		}
	}
	return entries
}
