package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickyhof/DocQL/op"
	"github.com/nickyhof/DocQL/ps"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			persistence, err := app.persistence()
			if err != nil {
				return err
			}

			transactions, err := persistence.Transactions(limit)
			if err != nil {
				return err
			}
			return writeTransactions(app.Out, app.Format, transactions)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of transactions to show (0 for all)")

	return cmd
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	var txnID, collection string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a collection to its state at a past transaction",
		Long: `Restore a collection to its state at a past transaction.

The restore is a new transaction, so the history in between is kept.

Example:
  docql restore --dir ./data --txn 3f2a9c1 --collection restaurants`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			store, ok := app.Instance.Store.(*op.Store)
			if !ok {
				return errNoHistory
			}

			asof, err := resolveTransaction(store.Persistence, txnID)
			if err != nil {
				return err
			}

			collectionOp, err := store.Collection(collection)
			if err != nil {
				return err
			}

			txn, err := collectionOp.Restore(asof, app.Identity)
			if err != nil {
				return err
			}
			if txn == nil {
				fmt.Fprintf(app.Out, "%s already matches %s\n", collection, shortID(asof.Id))
				return nil
			}
			return writeTransaction(app.Out, app.Format, "restored", *txn)
		},
	}

	cmd.Flags().StringVar(&txnID, "txn", "", "transaction id or unique prefix")
	cmd.Flags().StringVar(&collection, "collection", "", "collection to restore")
	cmd.MarkFlagRequired("txn")
	cmd.MarkFlagRequired("collection")

	return cmd
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	var txnID string

	cmd := &cobra.Command{
		Use:   "snapshot <name>",
		Short: "Name the current (or a given) transaction for later recovery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			persistence, err := app.persistence()
			if err != nil {
				return err
			}

			var asof *ps.Transaction
			if txnID != "" {
				txn, err := resolveTransaction(persistence, txnID)
				if err != nil {
					return err
				}
				asof = &txn
			}

			if err := persistence.Snapshot(args[0], asof); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "snapshot %s created\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&txnID, "txn", "", "transaction id or unique prefix (default HEAD)")

	return cmd
}

// NewRecoverCommand creates the recover command.
func NewRecoverCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <snapshot>",
		Short: "Reset the store to a snapshot, discarding later transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			persistence, err := app.persistence()
			if err != nil {
				return err
			}

			txn, err := persistence.Recover(args[0])
			if err != nil {
				return err
			}
			return writeTransaction(app.Out, app.Format, "recovered", txn)
		},
	}
}

// RemoteOptions holds flags shared by push and pull.
type RemoteOptions struct {
	*RootOptions
	Remote string
	Branch string
	Auth   ps.RemoteAuth
}

func (opts *RemoteOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&opts.Remote, "remote", "origin", "remote name")
	flags.StringVar(&opts.Branch, "branch", "", "branch (default current)")
	flags.StringVar((*string)(&opts.Auth.Type), "auth", "", "auth type (none|token|ssh|basic)")
	flags.StringVar(&opts.Auth.Token, "token", "", "access token for token auth")
	flags.StringVar(&opts.Auth.KeyPath, "key", "", "private key for ssh auth")
	flags.StringVar(&opts.Auth.Passphrase, "passphrase", "", "private key passphrase")
	flags.StringVar(&opts.Auth.Username, "username", "", "username for basic auth")
	flags.StringVar(&opts.Auth.Password, "password", "", "password for basic auth")
}

func (opts *RemoteOptions) auth() *ps.RemoteAuth {
	auth := opts.Auth
	if auth.Type == "" && auth.Token != "" {
		auth.Type = ps.AuthTypeToken
	}
	return &auth
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push transactions to a git remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			persistence, err := app.persistence()
			if err != nil {
				return err
			}

			if err := persistence.Push(cmd.Context(), opts.Remote, opts.Branch, opts.auth()); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "pushed to %s\n", opts.Remote)
			return nil
		},
	}
	opts.bind(cmd)

	return cmd
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull transactions from a git remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			persistence, err := app.persistence()
			if err != nil {
				return err
			}

			if err := persistence.Pull(cmd.Context(), opts.Remote, opts.Branch, opts.auth()); err != nil {
				return err
			}
			return writeTransaction(app.Out, app.Format, "pulled", persistence.LatestTransaction())
		},
	}
	opts.bind(cmd)

	return cmd
}

// resolveTransaction finds the transaction whose id starts with prefix.
func resolveTransaction(persistence *ps.Persistence, prefix string) (ps.Transaction, error) {
	transactions, err := persistence.Transactions(0)
	if err != nil {
		return ps.Transaction{}, err
	}

	var found []ps.Transaction
	for _, txn := range transactions {
		if len(prefix) >= 4 && strings.HasPrefix(txn.Id, prefix) {
			found = append(found, txn)
		}
	}

	switch len(found) {
	case 0:
		return ps.Transaction{}, fmt.Errorf("no transaction matches %q", prefix)
	case 1:
		return found[0], nil
	default:
		return ps.Transaction{}, fmt.Errorf("transaction prefix %q is ambiguous", prefix)
	}
}
