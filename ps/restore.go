package ps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v6/plumbing"

	"github.com/nickyhof/DocQL/core"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot tags asof, or HEAD when asof is nil, under name.
func (p *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if asof != nil {
		_, err := p.repo.CreateTag(name, plumbing.NewHash(asof.Id), nil)
		return err
	}

	headRef, err := p.repo.Head()
	if err != nil {
		return ErrNoCommits
	}

	_, err = p.repo.CreateTag(name, headRef.Hash(), nil)
	return err
}

// Recover moves the current branch back to the snapshot called name.
// Commits made after the snapshot are no longer reachable from HEAD.
func (p *Persistence) Recover(name string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	p.Lock()
	defer p.Unlock()

	ref, err := p.repo.Tag(name)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}

	if _, err := p.repo.Head(); err != nil {
		return Transaction{}, ErrNoCommits
	}

	branch := p.branchRef()
	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, ref.Hash())); err != nil {
		return Transaction{}, fmt.Errorf("failed to move %s: %w", branch.Short(), err)
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return p.LatestTransaction(), nil
}

// RestoreCollection rewrites collection to its state as of the given
// transaction. The result is a new commit, so the history in between is kept.
// ErrEmptyTransaction is returned when the collection is already identical.
func (p *Persistence) RestoreCollection(asof Transaction, collection string, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	p.Lock()
	defer p.Unlock()

	past, err := p.commitTree(plumbing.NewHash(asof.Id))
	if err != nil {
		return Transaction{}, err
	}

	wanted := make(map[string]plumbing.Hash)
	for _, entry := range subtreeEntries(past, collection) {
		wanted[entry.Name] = entry.Hash
	}

	var edits []docEdit
	if head, err := p.headTree(); err == nil {
		for _, entry := range subtreeEntries(head, collection) {
			hash, keep := wanted[entry.Name]
			switch {
			case !keep:
				edits = append(edits, docEdit{Collection: collection, Name: entry.Name, Remove: true})
			case hash == entry.Hash:
				delete(wanted, entry.Name)
			}
		}
	}
	for name, hash := range wanted {
		edits = append(edits, docEdit{Collection: collection, Name: name, Hash: hash})
	}

	if len(edits) == 0 {
		return Transaction{}, ErrEmptyTransaction
	}

	message := fmt.Sprintf("restore %s to %s", collection, shortID(asof.Id))
	return p.commitEdits(edits, identity, message)
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return strings.TrimSpace(id)
}
