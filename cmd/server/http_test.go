package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/nickyhof/DocQL"
	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/op"
	"github.com/nickyhof/DocQL/ps"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T, opts ...Option) (*gin.Engine, *ps.Persistence) {
	t.Helper()
	instance, persistence := newTestInstance(t)
	server := NewServer(instance, testIdentity, opts...)
	return server.Router(), persistence
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range header {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHTTPHealth(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHTTPQuery(t *testing.T) {
	router, persistence := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/query", gin.H{
		"username": "carol",
		"query":    "INSERT INTO restaurants (name, cuisine) VALUES ('Noma', 'Nordic')",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "insert", resp.Type)
	assert.Equal(t, "carol <test@test.com>", persistence.LatestTransaction().Author)

	w = doJSON(t, router, http.MethodPost, "/api/v1/query", gin.H{
		"query": "SELECT name FROM restaurants WHERE cuisine = 'Nordic'",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result db.QueryResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Result, &result))
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "Noma", result.Documents[0]["name"])
}

func TestHTTPQueryErrors(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"unsupported", gin.H{"query": "TRUNCATE users"}, http.StatusBadRequest, errorTypeUnsupported},
		{"malformed", gin.H{"query": "DELETE users"}, http.StatusBadRequest, errorTypeMalformed},
		{"missing query", gin.H{"username": "x"}, http.StatusBadRequest, errorTypeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/query", tt.body, nil)
			assert.Equal(t, tt.status, w.Code)

			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.kind, resp.Type)
		})
	}
}

func TestExecutionErrorMapsAdapterFailure(t *testing.T) {
	err := &db.AdapterError{Op: "find", Collection: "users", Err: assert.AnError}

	resp, status := executionError(err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, errorTypeAdapter, resp.Type)
	assert.Contains(t, resp.Error, "find users")
}

func TestHTTPBatch(t *testing.T) {
	router, _ := setupTestRouter(t, WithBatchConcurrency(2))

	w := doJSON(t, router, http.MethodPost, "/api/v1/batch", gin.H{
		"queries": []string{
			"INSERT INTO a (n) VALUES ('1')",
			"INSERT INTO b (n) VALUES ('2')",
			"SELECT * FROM c",
		},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out batchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	require.Len(t, out.Results, 3)
	assert.Equal(t, "insert", out.Results[0].Type)
	assert.Equal(t, "insert", out.Results[1].Type)
	assert.Equal(t, "query", out.Results[2].Type)
}

func TestHTTPBatchRejectsMalformedStatement(t *testing.T) {
	router, persistence := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/batch", gin.H{
		"queries": []string{
			"INSERT INTO a (n) VALUES ('1')",
			"SELECT FROM",
		},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errorTypeMalformed, decodeResponse(t, w).Type)
	assert.Empty(t, persistence.LatestTransaction().Id, "nothing may be written")
}

func TestHTTPAuth(t *testing.T) {
	secret := "http-secret"
	router, persistence := setupTestRouter(t, WithAuth(&AuthConfig{Enabled: true, JWTSecret: secret}))
	body := gin.H{"query": "INSERT INTO audit (event) VALUES ('x')"}

	w := doJSON(t, router, http.MethodPost, "/api/v1/query", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/query", body, map[string]string{
		"Authorization": "Bearer " + createTestJWT(t, "other", "a", "a@example.com"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/query", body, map[string]string{
		"Authorization": "Bearer " + createTestJWT(t, secret, "Dana", "dana@example.com"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Dana <dana@example.com>", persistence.LatestTransaction().Author)

	// Health stays open.
	w = doJSON(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPRateLimit(t *testing.T) {
	router, _ := setupTestRouter(t, WithRateLimit(0.001, 1))
	body := gin.H{"query": "SELECT * FROM users"}

	w := doJSON(t, router, http.MethodPost, "/api/v1/query", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/query", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, errorTypeRateLimited, decodeResponse(t, w).Type)
}

func TestHTTPCollections(t *testing.T) {
	router, _ := setupTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/query", gin.H{"query": "INSERT INTO users (name) VALUES ('a')"}, nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/collections", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"collections":["users"]}`, w.Body.String())
}

func TestIPLimitersEvictIdleClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters := newIPLimiters(func() *rate.Limiter { return rate.NewLimiter(1, 1) }, time.Minute)
	limiters.now = func() time.Time { return clock }
	limiters.lastSweep = clock

	first := limiters.get("10.0.0.1")
	limiters.get("10.0.0.2")
	assert.Same(t, first, limiters.get("10.0.0.1"), "an active client keeps its bucket")
	assert.Equal(t, 2, limiters.len())

	clock = clock.Add(30 * time.Second)
	limiters.get("10.0.0.1")

	clock = clock.Add(45 * time.Second)
	limiters.get("10.0.0.3")
	assert.Equal(t, 2, limiters.len(), "10.0.0.2 was idle for a minute")

	clock = clock.Add(2 * time.Minute)
	limiters.get("10.0.0.4")
	assert.Equal(t, 1, limiters.len())
	assert.NotSame(t, first, limiters.get("10.0.0.1"), "an evicted client starts a fresh bucket")
}

func TestHTTPActivity(t *testing.T) {
	router, _ := setupTestRouter(t)

	for _, req := range []gin.H{
		{"username": "alice", "query": "INSERT INTO restaurants (name) VALUES ('Noma')"},
		{"username": "bob", "query": "INSERT INTO restaurants (name) VALUES ('Geranium')"},
		{"username": "alice", "query": "UPDATE restaurants SET rating = 5 WHERE name = 'Noma'"},
	} {
		w := doJSON(t, router, http.MethodPost, "/api/v1/query", req, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/activity/alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Username string          `json:"username"`
		Activity []activityEntry `json:"activity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "alice", out.Username)
	require.Len(t, out.Activity, 2)
	assert.Equal(t, "update restaurants: 1 document", out.Activity[0].Action)
	assert.Equal(t, "alice <test@test.com>", out.Activity[0].Author)
	assert.NotEmpty(t, out.Activity[1].ID)
	assert.False(t, out.Activity[1].Timestamp.IsZero())

	w = doJSON(t, router, http.MethodGet, "/api/v1/activity/alice?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out.Activity, 1)

	w = doJSON(t, router, http.MethodGet, "/api/v1/activity/nobody", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"nobody","activity":[]}`, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/activity/alice?limit=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func mustMemoryPersistence(t *testing.T) *ps.Persistence {
	t.Helper()
	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)
	return persistence
}

// A store opened without its persistence has no history to read.
func TestHTTPActivityWithoutHistory(t *testing.T) {
	router := NewServer(DocQL.Open(op.NewStore(mustMemoryPersistence(t), testIdentity)), testIdentity).Router()

	w := doJSON(t, router, http.MethodGet, "/api/v1/activity/alice", nil, nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, errorTypeUnsupported, decodeResponse(t, w).Type)
}

func TestHTTPMetrics(t *testing.T) {
	router, _ := setupTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/query", gin.H{"query": "SELECT * FROM users"}, nil)

	w := doJSON(t, router, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `docql_statements_total{kind="SELECT",status="ok"}`)
	assert.Contains(t, w.Body.String(), "docql_statement_duration_seconds")
}

func TestStartHTTP(t *testing.T) {
	server, _ := setupTestServer(t)
	require.NoError(t, server.StartHTTP("127.0.0.1:0"))

	resp, err := http.Get("http://" + server.HTTPAddr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
