package db

import (
	"context"
	"fmt"
	"io"

	"github.com/nickyhof/DocQL/sql"
)

// ExecuteScript runs the ';'-separated statements read from r in order and
// stops at the first failure, returning the results gathered so far.
func (engine *Engine) ExecuteScript(ctx context.Context, r io.Reader) ([]Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	statements := sql.SplitStatements(string(data))
	results := make([]Result, 0, len(statements))
	for i, query := range statements {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := engine.Execute(ctx, query)
		if err != nil {
			return results, fmt.Errorf("statement %d: %w", i+1, err)
		}
		results = append(results, result)
	}

	engine.logger.Info("script executed", "statements", len(results))
	return results, nil
}
