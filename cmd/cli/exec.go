package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/sql"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Out string
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <statement>",
		Short: "Execute a single statement",
		Long: `Execute a single statement and print its result.

Example:
  docql exec "SELECT name FROM restaurants WHERE avg_rating>=4.5"
  docql exec --format json --out s3://reports/top.json "SELECT * FROM restaurants"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			return execStatement(cmd, app, opts.Out, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "write the result to a file or s3:// object instead of stdout")

	return cmd
}

func execStatement(cmd *cobra.Command, app *App, out, query string) error {
	result, err := app.Engine.Execute(cmd.Context(), query)
	if err != nil {
		return err
	}

	return withOutput(cmd, app, out, func(w io.Writer) error {
		return writeResult(w, app.Format, result)
	})
}

// withOutput calls write with stdout, or with a sink opened for out.
func withOutput(cmd *cobra.Command, app *App, out string, write func(io.Writer) error) error {
	if out == "" {
		return write(app.Out)
	}

	sink, err := db.CreateSink(cmd.Context(), out, app.s3Config())
	if err != nil {
		return err
	}
	if err := write(sink); err != nil {
		sink.Close()
		return err
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	return nil
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Parallel int
	Out      string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute the ';'-separated statements of a script",
		Long: `Execute a script from a local path, an http(s) URL or an s3:// object.

Statements run in order and the run stops at the first failure. With
--parallel N the statements are treated as independent and run N at a time.

Example:
  docql run seed.sql
  docql run --parallel 8 s3://fixtures/restaurants.sql`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			return runScript(cmd, app, args[0], opts.Parallel, opts.Out)
		},
	}

	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 0, "run up to N independent statements at once")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write results to a file or s3:// object instead of stdout")

	return cmd
}

func runScript(cmd *cobra.Command, app *App, path string, parallel int, out string) error {
	if parallel <= 1 {
		source, err := db.OpenSource(cmd.Context(), path, app.s3Config())
		if err != nil {
			return err
		}
		defer source.Close()

		results, runErr := app.Engine.ExecuteScript(cmd.Context(), source)
		err = withOutput(cmd, app, out, func(w io.Writer) error {
			for _, result := range results {
				if err := writeResult(w, app.Format, result); err != nil {
					return err
				}
			}
			return nil
		})
		return errors.Join(runErr, err)
	}

	queries, err := readScript(app, path)
	if err != nil {
		return err
	}

	items, err := app.Engine.ExecuteBatch(cmd.Context(), queries, parallel)
	if err != nil {
		return err
	}

	failed := 0
	err = withOutput(cmd, app, out, func(w io.Writer) error {
		for i, item := range items {
			if item.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d] %s: %v\n", i+1, truncate(item.Query, 50), item.Err)
				continue
			}
			if err := writeResult(w, app.Format, item.Result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d statements failed", failed, len(items))
	}
	return nil
}

// readScript loads the statements of a local, http(s) or s3:// script.
func readScript(app *App, path string) ([]string, error) {
	source, err := db.OpenSource(app.contextOrBackground(), path, app.s3Config())
	if err != nil {
		return nil, err
	}
	defer source.Close()

	data, err := io.ReadAll(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return sql.SplitStatements(string(data)), nil
}
