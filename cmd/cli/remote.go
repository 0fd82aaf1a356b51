package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewRemoteCommand creates the remote command group.
func NewRemoteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the git remotes of a git-backed store",
	}

	cmd.AddCommand(newRemoteAddCommand(rootOpts))
	cmd.AddCommand(newRemoteListCommand(rootOpts))
	cmd.AddCommand(newRemoteRemoveCommand(rootOpts))
	cmd.AddCommand(newRemoteFetchCommand(rootOpts))

	return cmd
}

func newRemoteAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a remote",
		Args:  cobra.ExactArgs(2),
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
			if err := persistence.AddRemote(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "remote %s added\n", args[0])
			return nil
		},
	}
}

func newRemoteListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List remotes",
		Args:    cobra.NoArgs,
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
			remotes, err := persistence.ListRemotes()
			if err != nil {
				return err
			}

			if app.Format != "text" {
				return writeValue(app.Out, app.Format, remotes)
			}
			for _, remote := range remotes {
				fmt.Fprintf(app.Out, "%s\t%s\n", remote.Name, strings.Join(remote.URLs, ", "))
			}
			return nil
		},
	}
}

func newRemoteRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a remote",
		Args:    cobra.ExactArgs(1),
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
			if err := persistence.RemoveRemote(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "remote %s removed\n", args[0])
			return nil
		},
	}
}

func newRemoteFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a remote without changing the local branch",
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
			if err := persistence.Fetch(cmd.Context(), opts.Remote, opts.auth()); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "fetched %s\n", opts.Remote)
			return nil
		},
	}
	opts.bind(cmd)

	return cmd
}
