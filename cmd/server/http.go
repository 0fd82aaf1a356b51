package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nickyhof/DocQL/core"
)

const identityContextName = "identity"

type queryRequest struct {
	Username string `json:"username"`
	Query    string `json:"query" binding:"required"`
}

type batchRequest struct {
	Username string   `json:"username"`
	Queries  []string `json:"queries" binding:"required,min=1"`
}

type batchResponse struct {
	Success bool       `json:"success"`
	Results []Response `json:"results"`
}

// activityEntry is one commit made by a user.
type activityEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
}

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 15 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters hands out one token bucket per client address. Buckets idle for
// longer than ttl are swept at most once per ttl.
type ipLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	newFn     func() *rate.Limiter
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiters(newFn func() *rate.Limiter, ttl time.Duration) *ipLimiters {
	return &ipLimiters{
		limiters:  make(map[string]*ipLimiter),
		newFn:     newFn,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		for key, entry := range l.limiters {
			if now.Sub(entry.lastSeen) >= l.ttl {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: l.newFn()}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (l *ipLimiters) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Router builds the HTTP API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(s.authMiddleware())
	if s.limit > 0 {
		api.Use(s.rateLimitMiddleware())
	}
	api.POST("/query", s.handleQuery)
	api.POST("/batch", s.handleBatch)
	api.GET("/collections", s.handleCollections)
	api.GET("/activity/:username", s.handleActivity)

	return router
}

// StartHTTP serves the HTTP API on addr until Stop.
func (s *Server) StartHTTP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	s.httpAddr = listener.Addr().String()
	s.logger.Info("http api listening", "addr", s.httpAddr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()
	return nil
}

// HTTPAddr returns the HTTP API's listening address.
func (s *Server) HTTPAddr() string {
	return s.httpAddr
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.authEnabled() {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			RejectedTotal.WithLabelValues("auth").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorTypeAuth, errAuthRequired))
			return
		}

		identity, _, err := s.auth.verify(token)
		if err != nil {
			RejectedTotal.WithLabelValues("auth").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorTypeAuth, err))
			return
		}

		c.Set(identityContextName, identity)
		c.Next()
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	limiters := newIPLimiters(s.newLimiter, limiterIdleTTL)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			RejectedTotal.WithLabelValues("rate_limit").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse(errorTypeRateLimited, errRateLimited))
			return
		}
		c.Next()
	}
}

// requestContext carries the token identity, or the named user when
// authentication is off.
func (s *Server) requestContext(c *gin.Context, username string) context.Context {
	ctx := c.Request.Context()
	if value, ok := c.Get(identityContextName); ok {
		return core.WithIdentity(ctx, value.(core.Identity))
	}
	if username != "" {
		return core.WithIdentity(ctx, core.Identity{Name: username, Email: s.identity.Email})
	}
	return ctx
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(errorTypeMalformed, fmt.Errorf("invalid request: %w", err)))
		return
	}

	response, status := s.execute(s.requestContext(c, req.Username), req.Query)
	c.JSON(status, response)
}

func (s *Server) handleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(errorTypeMalformed, fmt.Errorf("invalid request: %w", err)))
		return
	}

	items, err := s.engine.ExecuteBatch(s.requestContext(c, req.Username), req.Queries, s.concurrency)
	if err != nil {
		response, status := executionError(err)
		c.JSON(status, response)
		return
	}

	out := batchResponse{Success: true, Results: make([]Response, len(items))}
	for i, item := range items {
		if item.Err != nil {
			out.Success = false
			out.Results[i], _ = executionError(item.Err)
			continue
		}
		out.Results[i] = resultResponse(item.Result)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCollections(c *gin.Context) {
	names, err := s.instance.Collections(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(errorTypeInternal, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": names})
}

// handleActivity lists the commits authored by a user, newest first. Only
// git-backed stores keep a history.
func (s *Server) handleActivity(c *gin.Context) {
	persistence := s.instance.Persistence
	if persistence == nil {
		c.JSON(http.StatusNotImplemented, errorResponse(errorTypeUnsupported, errNoHistory))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse(errorTypeMalformed, fmt.Errorf("invalid limit %q", raw)))
			return
		}
		limit = n
	}

	username := c.Param("username")
	transactions, err := persistence.TransactionsBy(username, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(errorTypeInternal, err))
		return
	}

	activity := make([]activityEntry, 0, len(transactions))
	for _, txn := range transactions {
		activity = append(activity, activityEntry{
			ID:        txn.Id,
			Action:    txn.Message,
			Timestamp: txn.When,
			Author:    txn.Author,
		})
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "activity": activity})
}
