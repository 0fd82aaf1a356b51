package db

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw    string
		kind   locationKind
		path   string
		bucket string
		key    string
	}{
		{raw: "scripts/x.sql", kind: localLocation, path: "scripts/x.sql"},
		{raw: "file:///tmp/x.sql", kind: localLocation, path: "/tmp/x.sql"},
		{raw: "http://example.com/x.sql", kind: httpLocation},
		{raw: "https://example.com/x.sql", kind: httpLocation},
		{raw: "S3://reviews/scripts/seed.sql", kind: s3Location, bucket: "reviews", key: "scripts/seed.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			loc, err := parseLocation(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, loc.kind)
			if tt.kind == localLocation {
				assert.Equal(t, tt.path, loc.path)
			}
			assert.Equal(t, tt.bucket, loc.bucket)
			assert.Equal(t, tt.key, loc.key)
		})
	}
}

func TestParseLocationInvalid(t *testing.T) {
	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///key", "ftp://host/x.sql"} {
		_, err := parseLocation(bad)
		assert.Error(t, err, bad)
	}
}

func TestOpenSourceLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT * FROM a"), 0644))

	for _, source := range []string{path, "file://" + path} {
		r, err := OpenSource(context.Background(), source, nil)
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		r.Close()
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM a", string(data))
	}
}

func TestOpenSourceSwappedOpen(t *testing.T) {
	original := openLocal
	defer func() { openLocal = original }()

	var opened string
	openLocal = func(path string) (io.ReadCloser, error) {
		opened = path
		return io.NopCloser(strings.NewReader("SELECT * FROM x")), nil
	}

	r, err := OpenSource(context.Background(), "file:///scripts/run.sql", nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "/scripts/run.sql", opened)
}

func TestOpenSourceHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/seed.sql" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("DELETE FROM a"))
	}))
	defer server.Close()

	r, err := OpenSource(context.Background(), server.URL+"/seed.sql", nil)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	r.Close()
	assert.Equal(t, "DELETE FROM a", string(data))

	_, err = OpenSource(context.Background(), server.URL+"/missing.sql", nil)
	assert.ErrorContains(t, err, "status 404")
}

func TestCreateSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	w, err := CreateSink(context.Background(), path, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"ok":true}`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	_, err = CreateSink(context.Background(), "https://example.com/out", nil)
	assert.Error(t, err)

	_, err = CreateSink(context.Background(), "s3://bucket-only", nil)
	assert.Error(t, err)
}

func TestScriptFromSource(t *testing.T) {
	engine, store := setupTestEngine(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("INSERT INTO a (x) VALUES ('1'); SELECT * FROM a;"))
	}))
	defer server.Close()

	r, err := OpenSource(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer r.Close()

	results, err := engine.ExecuteScript(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, store.Calls(), 2)
}
