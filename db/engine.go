package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/sql"
)

// ExecutionHook is called after every statement that parsed, with the
// statement kind, its execution time and the error it returned, if any.
type ExecutionHook func(kind sql.StatementType, elapsed time.Duration, err error)

type Engine struct {
	Store    DocumentStore
	Identity core.Identity
	logger   *slog.Logger
	hook     ExecutionHook
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(engine *Engine) {
		engine.logger = logger
	}
}

func WithHook(hook ExecutionHook) Option {
	return func(engine *Engine) {
		engine.hook = hook
	}
}

func NewEngine(store DocumentStore, identity core.Identity, opts ...Option) *Engine {
	engine := &Engine{
		Store:    store,
		Identity: identity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Execute parses query and runs it against the store. Parse failures are
// returned before the store is called.
func (engine *Engine) Execute(ctx context.Context, query string) (Result, error) {
	parser := sql.NewParser(query)
	statement, err := parser.Parse()
	if err != nil {
		engine.logger.Debug("statement rejected", "error", err)
		return nil, err
	}

	return engine.ExecuteStatement(ctx, statement, parser.Warnings())
}

// ExecuteStatement runs an already parsed statement. warnings are attached
// to the result unchanged.
func (engine *Engine) ExecuteStatement(ctx context.Context, statement sql.Statement, warnings []sql.Warning) (result Result, err error) {
	if _, ok := core.IdentityFromContext(ctx); !ok {
		ctx = core.WithIdentity(ctx, engine.Identity)
	}

	for _, warning := range warnings {
		engine.logger.Warn("statement warning",
			"collection", statement.Target(),
			"segment", warning.Segment,
			"reason", warning.Reason)
	}

	startTime := time.Now()
	defer func() {
		elapsed := time.Since(startTime)
		engine.logger.Debug("statement executed",
			"kind", statement.Type().String(),
			"collection", statement.Target(),
			"duration", elapsed,
			"error", err)
		if engine.hook != nil {
			engine.hook(statement.Type(), elapsed, err)
		}
	}()

	switch s := statement.(type) {
	case sql.SelectStatement:
		result, err = engine.executeSelectStatement(ctx, s, warnings)
	case sql.InsertStatement:
		result, err = engine.executeInsertStatement(ctx, s, warnings)
	case sql.UpdateStatement:
		result, err = engine.executeUpdateStatement(ctx, s, warnings)
	case sql.DeleteStatement:
		result, err = engine.executeDeleteStatement(ctx, s, warnings)
	default:
		err = fmt.Errorf("unsupported statement type: %v", statement.Type())
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (engine *Engine) executeSelectStatement(ctx context.Context, statement sql.SelectStatement, warnings []sql.Warning) (QueryResult, error) {
	startTime := time.Now()

	documents, err := engine.Store.Find(ctx, statement.Collection, statement.Where)
	if err != nil {
		return QueryResult{}, adapterFailure("find", statement.Collection, err)
	}

	if documents == nil {
		documents = []core.Document{}
	}
	if statement.Fields != nil {
		documents = project(documents, statement.Fields)
	}

	return QueryResult{
		Collection:       statement.Collection,
		Fields:           statement.Fields,
		Documents:        documents,
		Warnings:         warnings,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeInsertStatement(ctx context.Context, statement sql.InsertStatement, warnings []sql.Warning) (InsertResult, error) {
	startTime := time.Now()

	id, err := engine.Store.InsertOne(ctx, statement.Collection, statement.Document())
	if err != nil {
		return InsertResult{}, adapterFailure("insert_one", statement.Collection, err)
	}

	return InsertResult{
		Collection:       statement.Collection,
		InsertedID:       id,
		Warnings:         warnings,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeUpdateStatement(ctx context.Context, statement sql.UpdateStatement, warnings []sql.Warning) (UpdateResult, error) {
	startTime := time.Now()

	modified, err := engine.Store.UpdateMany(ctx, statement.Collection, statement.Where, statement.Set())
	if err != nil {
		return UpdateResult{}, adapterFailure("update_many", statement.Collection, err)
	}

	return UpdateResult{
		Collection:       statement.Collection,
		ModifiedCount:    modified,
		Warnings:         warnings,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeDeleteStatement(ctx context.Context, statement sql.DeleteStatement, warnings []sql.Warning) (DeleteResult, error) {
	startTime := time.Now()

	deleted, err := engine.Store.DeleteMany(ctx, statement.Collection, statement.Where)
	if err != nil {
		return DeleteResult{}, adapterFailure("delete_many", statement.Collection, err)
	}

	return DeleteResult{
		Collection:       statement.Collection,
		DeletedCount:     deleted,
		Warnings:         warnings,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// project keeps the requested fields of each document. The identifier field
// is always kept, as document stores do for projections.
func project(documents []core.Document, fields []string) []core.Document {
	projected := make([]core.Document, 0, len(documents))
	for _, document := range documents {
		row := make(core.Document, len(fields)+1)
		if id, ok := document[IDField]; ok {
			row[IDField] = id
		}
		for _, field := range fields {
			if value, ok := document[field]; ok {
				row[field] = value
			}
		}
		projected = append(projected, row)
	}
	return projected
}
