package ps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

const defaultRemote = "origin"

type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds credentials for push, pull and fetch. A nil *RemoteAuth
// means anonymous access.
type RemoteAuth struct {
	Type       AuthType `mapstructure:"type"`
	Token      string   `mapstructure:"token"`
	KeyPath    string   `mapstructure:"key_path"` // defaults to ~/.ssh/id_ed25519
	Passphrase string   `mapstructure:"passphrase"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
}

type Remote struct {
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

func (auth *RemoteAuth) method() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case AuthTypeNone, "":
		return nil, nil
	case AuthTypeToken:
		// Git hosts accept a token as the password of any user name.
		return &http.BasicAuth{Username: "git", Password: auth.Token}, nil
	case AuthTypeBasic:
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("no ssh key path: %w", err)
			}
			keyPath = filepath.Join(home, ".ssh", "id_ed25519")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)
	}
	return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
}

func (p *Persistence) AddRemote(name, url string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if _, err := p.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		return fmt.Errorf("failed to add remote %q: %w", name, err)
	}
	return nil
}

func (p *Persistence) ListRemotes() ([]Remote, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	remotes, err := p.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	result := make([]Remote, 0, len(remotes))
	for _, remote := range remotes {
		cfg := remote.Config()
		result = append(result, Remote{Name: cfg.Name, URLs: cfg.URLs})
	}
	return result, nil
}

func (p *Persistence) RemoveRemote(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if err := p.repo.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to remove remote %q: %w", name, err)
	}
	return nil
}

// remoteCall checks the common preconditions of push, pull and fetch and
// resolves the remote name and auth method.
func (p *Persistence) remoteCall(ctx context.Context, remoteName string, auth *RemoteAuth) (string, transport.AuthMethod, error) {
	if err := p.ensureInitialized(); err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	if remoteName == "" {
		remoteName = defaultRemote
	}

	method, err := auth.method()
	if err != nil {
		return "", nil, fmt.Errorf("failed to configure auth: %w", err)
	}
	return remoteName, method, nil
}

// upToDate treats git's "already up-to-date" as success.
func upToDate(err error) error {
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func (p *Persistence) currentBranch() (string, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !headRef.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", shortID(headRef.Hash().String()))
	}
	return headRef.Name().Short(), nil
}

// Push sends branch, or the current branch when empty, to the remote.
func (p *Persistence) Push(ctx context.Context, remoteName, branch string, auth *RemoteAuth) error {
	remoteName, method, err := p.remoteCall(ctx, remoteName, auth)
	if err != nil {
		return err
	}

	p.RLock()
	defer p.RUnlock()

	if branch == "" {
		if branch, err = p.currentBranch(); err != nil {
			return err
		}
	}

	ref := plumbing.NewBranchReferenceName(branch)
	err = upToDate(p.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
		Auth:       method,
	}))
	if err != nil {
		return fmt.Errorf("failed to push to %q: %w", remoteName, err)
	}
	return nil
}

// Pull fetches from the remote and fast-forwards the current branch.
func (p *Persistence) Pull(ctx context.Context, remoteName, branch string, auth *RemoteAuth) error {
	remoteName, method, err := p.remoteCall(ctx, remoteName, auth)
	if err != nil {
		return err
	}

	p.Lock()
	defer p.Unlock()

	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	opts := &git.PullOptions{RemoteName: remoteName, Auth: method}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	if err := upToDate(wt.Pull(opts)); err != nil {
		return fmt.Errorf("failed to pull from %q: %w", remoteName, err)
	}
	return nil
}

// Fetch updates the remote-tracking refs without touching the current branch.
func (p *Persistence) Fetch(ctx context.Context, remoteName string, auth *RemoteAuth) error {
	remoteName, method, err := p.remoteCall(ctx, remoteName, auth)
	if err != nil {
		return err
	}

	if err := upToDate(p.repo.Fetch(&git.FetchOptions{RemoteName: remoteName, Auth: method})); err != nil {
		return fmt.Errorf("failed to fetch from %q: %w", remoteName, err)
	}
	return nil
}
