package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/DocQL/sql"
)

func TestExecuteBatch(t *testing.T) {
	engine, store := setupTestEngine(t)
	insertTestData(t, store)

	queries := []string{
		"SELECT * FROM restaurants WHERE avg_rating > 4",
		"SELECT name FROM restaurants",
		"INSERT INTO audit (action) VALUES ('read')",
		"UPDATE users SET (seen = 1)",
	}

	items, err := engine.ExecuteBatch(context.Background(), queries, 2)
	require.NoError(t, err)
	require.Len(t, items, len(queries))

	for i, item := range items {
		assert.Equal(t, queries[i], item.Query)
		assert.NoError(t, item.Err)
	}
	assert.Len(t, items[0].Result.(QueryResult).Documents, 2)
	assert.Equal(t, InsertResultType, items[2].Result.Type())
	assert.Len(t, store.Calls(), len(queries))
}

func TestExecuteBatchParsesFirst(t *testing.T) {
	engine, store := setupTestEngine(t)

	_, err := engine.ExecuteBatch(context.Background(), []string{
		"INSERT INTO audit (action) VALUES ('read')",
		"UPDATE audit SET",
	}, 4)

	assert.ErrorIs(t, err, sql.ErrMalformedStatement)
	assert.True(t, strings.HasPrefix(err.Error(), "statement 2:"), err.Error())
	assert.Empty(t, store.Calls(), "no statement may run when one fails to parse")
}

func TestExecuteBatchItemErrors(t *testing.T) {
	engine, store := setupTestEngine(t)
	store.err = errors.New("unavailable")

	items, err := engine.ExecuteBatch(context.Background(), []string{
		"SELECT * FROM a",
		"SELECT * FROM b",
	}, 0)
	require.NoError(t, err)

	for _, item := range items {
		assert.ErrorIs(t, item.Err, ErrAdapterFailure)
		assert.Nil(t, item.Result)
	}
}
