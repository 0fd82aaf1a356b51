package main

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, data []byte) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestExecuteRoundTrip(t *testing.T) {
	handle, err := openMemory()
	require.NoError(t, err)
	defer closeHandle(handle)

	resp := decode(t, execute(handle, "INSERT INTO users (_id, name) VALUES ('u1', 'ada')"))
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "insert", resp.Type)

	resp = decode(t, execute(handle, "SELECT name FROM users WHERE _id = 'u1'"))
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "query", resp.Type)

	var result struct {
		Documents []map[string]any `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "ada", result.Documents[0]["name"])
}

func TestExecuteErrors(t *testing.T) {
	handle, err := openMemory()
	require.NoError(t, err)
	defer closeHandle(handle)

	resp := decode(t, execute(handle, "GRANT ALL"))
	assert.False(t, resp.Success)
	assert.Equal(t, "unsupported_operation", resp.Type)

	resp = decode(t, execute(handle, "SELECT FROM"))
	assert.Equal(t, "malformed_statement", resp.Type)

	resp = decode(t, execute(9999, "SELECT * FROM users"))
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid handle", resp.Error)
}

func TestCloseHandle(t *testing.T) {
	handle, err := openMemory()
	require.NoError(t, err)

	require.NoError(t, closeHandle(handle))
	assert.ErrorIs(t, closeHandle(handle), errInvalidHandle)
	assert.False(t, decode(t, execute(handle, "SELECT * FROM users")).Success)
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()

	handle, err := openFile(dir)
	require.NoError(t, err)
	require.True(t, decode(t, execute(handle, "INSERT INTO notes (_id) VALUES ('n1')")).Success)
	require.NoError(t, closeHandle(handle))

	reopened, err := openFile(dir)
	require.NoError(t, err)
	defer closeHandle(reopened)

	var result struct {
		Documents []map[string]any `json:"documents"`
	}
	resp := decode(t, execute(reopened, "SELECT * FROM notes"))
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Len(t, result.Documents, 1)
}

func TestHandlesAreUniqueUnderConcurrency(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = make(map[int]bool)
		wg   sync.WaitGroup
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handle, err := openMemory()
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			seen[handle] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 16)
	for handle := range seen {
		closeHandle(handle)
	}
}
