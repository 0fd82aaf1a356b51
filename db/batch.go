package db

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nickyhof/DocQL/sql"
)

// BatchItem is the outcome of one statement of a batch.
type BatchItem struct {
	Query  string
	Result Result
	Err    error
}

// ExecuteBatch runs independent statements concurrently, at most concurrency
// at a time. Every statement is parsed before any is executed, so a batch
// with a malformed statement never reaches the store. Items are returned in
// input order; no execution order is guaranteed between them.
func (engine *Engine) ExecuteBatch(ctx context.Context, queries []string, concurrency int) ([]BatchItem, error) {
	type parsed struct {
		statement sql.Statement
		warnings  []sql.Warning
	}

	statements := make([]parsed, len(queries))
	for i, query := range queries {
		parser := sql.NewParser(query)
		statement, err := parser.Parse()
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
		statements[i] = parsed{statement: statement, warnings: parser.Warnings()}
	}

	if concurrency < 1 {
		concurrency = 1
	}

	items := make([]BatchItem, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range statements {
		g.Go(func() error {
			result, err := engine.ExecuteStatement(ctx, statements[i].statement, statements[i].warnings)
			items[i] = BatchItem{Query: queries[i], Result: result, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, err
	}
	engine.logger.Debug("batch executed", "statements", len(items), "concurrency", concurrency)
	return items, nil
}
