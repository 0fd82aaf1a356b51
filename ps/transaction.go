package ps

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
)

// Transaction is one commit in the document history.
type Transaction struct {
	Id      string    `json:"id"`
	When    time.Time `json:"when"`
	Author  string    `json:"author"` // "Name <email>" format
	Message string    `json:"message"`
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func transactionFromCommit(c *object.Commit) Transaction {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}

	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: strings.TrimSpace(c.Message),
	}
}

// LatestTransaction returns the HEAD commit, or a zero Transaction before the first write.
func (p *Persistence) LatestTransaction() Transaction {
	headRef, err := p.repo.Head()
	if err != nil || headRef == nil {
		return Transaction{}
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	return transactionFromCommit(commit)
}

// Transactions lists up to limit commits from HEAD, newest first.
// A limit of zero or less lists the whole history.
func (p *Persistence) Transactions(limit int) ([]Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	if _, err := p.repo.Head(); err != nil {
		return nil, nil
	}

	cIter, err := p.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionFromCommit(c))
		if limit > 0 && len(transactions) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}

	return transactions, nil
}

// TransactionsBy lists up to limit commits from HEAD whose author name is
// name, newest first. A limit of zero or less lists them all.
func (p *Persistence) TransactionsBy(name string, limit int) ([]Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	if _, err := p.repo.Head(); err != nil {
		return nil, nil
	}

	cIter, err := p.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		if c.Author.Name != name {
			return nil
		}
		transactions = append(transactions, transactionFromCommit(c))
		if limit > 0 && len(transactions) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}

	return transactions, nil
}

// TransactionsSince lists the commits made at or after asof.
func (p *Persistence) TransactionsSince(asof time.Time) []Transaction {
	var transactions []Transaction

	cIter, err := p.repo.Log(&git.LogOptions{Since: &asof})
	if err != nil {
		return nil
	}

	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionFromCommit(c))
		return nil
	})

	return transactions
}

// TransactionsFrom lists the history starting at the given commit id.
func (p *Persistence) TransactionsFrom(asof string) []Transaction {
	var transactions []Transaction

	cIter, err := p.repo.Log(&git.LogOptions{From: plumbing.NewHash(asof)})
	if err != nil {
		return nil
	}

	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionFromCommit(c))
		return nil
	})

	return transactions
}
