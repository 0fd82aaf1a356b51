package ps

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrNoCommits      = errors.New("repository has no commits")
)

// Persistence stores collections of JSON documents in a Git repository.
// Every write is a commit on the current branch.
type Persistence struct {
	repo   *git.Repository
	memory bool
	mu     sync.RWMutex
}

func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// Writers hold the write lock across read-modify-commit sequences so that
// commits never interleave.
func (p *Persistence) RLock()   { p.mu.RLock() }
func (p *Persistence) RUnlock() { p.mu.RUnlock() }
func (p *Persistence) Lock()    { p.mu.Lock() }
func (p *Persistence) Unlock()  { p.mu.Unlock() }

// NewMemoryPersistence creates a repository held entirely in memory.
func NewMemoryPersistence() (*Persistence, error) {
	repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(memfs.New()))
	if err != nil {
		return nil, err
	}

	return &Persistence{repo: repo, memory: true}, nil
}

// NewFilePersistence opens the repository in baseDir, creating it if needed.
// When gitURL is set and baseDir holds no repository yet, the remote is
// cloned instead.
func NewFilePersistence(baseDir string, gitURL string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	worktree := osfs.New(baseDir)
	dotGit, err := worktree.Chroot(".git")
	if err != nil {
		return nil, err
	}
	storage := filesystem.NewStorageWithOptions(dotGit, cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	repo, err := openOrCreate(storage, worktree, dotGit.Root(), gitURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository in %s: %w", baseDir, err)
	}
	return &Persistence{repo: repo}, nil
}

func openOrCreate(storage *filesystem.Storage, worktree billy.Filesystem, gitDir, gitURL string) (*git.Repository, error) {
	if _, err := os.Stat(gitDir); err == nil {
		return git.Open(storage, worktree)
	}
	if gitURL != "" {
		return git.Clone(storage, worktree, &git.CloneOptions{URL: gitURL})
	}
	return git.Init(storage, git.WithWorkTree(worktree))
}
