package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nickyhof/DocQL"
	"github.com/nickyhof/DocQL/config"
	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/logger"
	"github.com/nickyhof/DocQL/ps"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

var errNoHistory = errors.New("this command needs a git-backed store (--backend git or memory)")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string
	Backend    string
	Dir        string
	GitURL     string
	Name       string
	Email      string
	Verbose    bool
}

// App is an opened store plus the settings a command runs with.
type App struct {
	Config   *config.Config
	Instance *DocQL.Instance
	Engine   *db.Engine
	Identity core.Identity
	Format   string
	Out      io.Writer

	ctx context.Context
}

// NewRootCommand creates the docql command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "docql",
		Short: "DocQL translates SQL statements into document store operations",
		Long: `DocQL accepts SELECT, INSERT, UPDATE and DELETE statements and runs them
against a document store: a git repository of JSON documents, or MongoDB.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	flags.StringVar(&opts.Backend, "backend", "", "store backend (memory|git|mongo)")
	flags.StringVar(&opts.Dir, "dir", "", "repository directory for the git backend")
	flags.StringVar(&opts.GitURL, "git-url", "", "remote to clone when --dir holds no repository")
	flags.StringVar(&opts.Name, "name", "", "author name for commits")
	flags.StringVar(&opts.Email, "email", "", "author email for commits")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewRecoverCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewPullCommand(opts))
	cmd.AddCommand(NewRemoteCommand(opts))

	return cmd
}

// loadConfig reads the config file and environment, then applies flags.
func (opts *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.EnvPrefix, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.Backend != "" {
		cfg.Store.Backend = opts.Backend
	}
	if opts.Dir != "" {
		cfg.Store.Dir = opts.Dir
		if opts.Backend == "" {
			cfg.Store.Backend = config.BackendGit
		}
	}
	if opts.GitURL != "" {
		cfg.Store.GitURL = opts.GitURL
	}
	if opts.Name != "" {
		cfg.Identity.Name = opts.Name
	}
	if opts.Email != "" {
		cfg.Identity.Email = opts.Email
	}
	if opts.Verbose {
		cfg.Log.Level = "DEBUG"
	}

	return cfg, cfg.Validate()
}

// open loads configuration and opens the configured store. The caller
// closes the returned App.
func (opts *RootOptions) open(cmd *cobra.Command) (*App, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	}, cmd.ErrOrStderr())

	instance, err := DocQL.OpenConfigured(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	instance.Logger = log

	identity := core.Identity{Name: cfg.Identity.Name, Email: cfg.Identity.Email}
	return &App{
		Config:   cfg,
		Instance: instance,
		Engine:   instance.Engine(identity),
		Identity: identity,
		Format:   opts.Format,
		Out:      cmd.OutOrStdout(),
		ctx:      cmd.Context(),
	}, nil
}

func (app *App) contextOrBackground() context.Context {
	if app.ctx == nil {
		return context.Background()
	}
	return app.ctx
}

func (app *App) Close() error {
	return app.Instance.Close(context.Background())
}

// persistence returns the git repository behind the store, if there is one.
func (app *App) persistence() (*ps.Persistence, error) {
	if app.Instance.Persistence == nil {
		return nil, errNoHistory
	}
	return app.Instance.Persistence, nil
}

func (app *App) s3Config() *db.S3Config {
	return &db.S3Config{
		AccessKey: app.Config.S3.AccessKey,
		SecretKey: app.Config.S3.SecretKey,
		Region:    app.Config.S3.Region,
		Endpoint:  app.Config.S3.Endpoint,
	}
}
