package DocQL

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nickyhof/DocQL/config"
	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/mongo"
	"github.com/nickyhof/DocQL/op"
	"github.com/nickyhof/DocQL/ps"
)

// Instance is an opened document store that engines execute against.
type Instance struct {
	Store db.DocumentStore
	// Persistence is set for git-backed stores and nil otherwise.
	Persistence *ps.Persistence
	Logger      *slog.Logger

	close func(ctx context.Context) error
}

// Open wraps an existing store.
func Open(store db.DocumentStore) *Instance {
	return &Instance{Store: store, Logger: slog.Default()}
}

// OpenPersistence opens a git-backed store over persistence.
func OpenPersistence(persistence *ps.Persistence, identity core.Identity) *Instance {
	return &Instance{
		Store:       op.NewStore(persistence, identity),
		Persistence: persistence,
		Logger:      slog.Default(),
	}
}

// OpenConfigured opens the backend selected by cfg.Store.Backend.
func OpenConfigured(ctx context.Context, cfg *config.Config) (*Instance, error) {
	identity := core.Identity{Name: cfg.Identity.Name, Email: cfg.Identity.Email}

	var (
		instance *Instance
		err      error
	)

	switch cfg.Store.Backend {
	case config.BackendMemory:
		var persistence *ps.Persistence
		persistence, err = ps.NewMemoryPersistence()
		if err == nil {
			instance = OpenPersistence(persistence, identity)
		}
	case config.BackendGit:
		var persistence *ps.Persistence
		persistence, err = ps.NewFilePersistence(cfg.Store.Dir, cfg.Store.GitURL)
		if err == nil {
			instance = OpenPersistence(persistence, identity)
		}
	case config.BackendMongo:
		var store *mongo.Store
		store, err = mongo.Connect(ctx, cfg.Store.Mongo.ConnectionURI(), cfg.Store.Mongo.Database)
		if err == nil {
			instance = Open(store)
			instance.close = store.Close
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}

	if gitStore, ok := instance.Store.(*op.Store); ok && cfg.Store.BuiltinSchemas {
		if err := gitStore.LoadBuiltinSchemas(); err != nil {
			return nil, err
		}
	}

	return instance, nil
}

// Engine returns an engine acting as identity unless the context says otherwise.
func (instance *Instance) Engine(identity core.Identity, opts ...db.Option) *db.Engine {
	opts = append([]db.Option{db.WithLogger(instance.Logger)}, opts...)
	return db.NewEngine(instance.Store, identity, opts...)
}

// Collections returns the backend's collection names when it can list them.
func (instance *Instance) Collections(ctx context.Context) ([]string, error) {
	switch store := instance.Store.(type) {
	case *op.Store:
		return store.Collections()
	case *mongo.Store:
		return store.Collections(ctx)
	}
	return nil, fmt.Errorf("store %T cannot list collections", instance.Store)
}

func (instance *Instance) Close(ctx context.Context) error {
	if instance.close == nil {
		return nil
	}
	return instance.close(ctx)
}
