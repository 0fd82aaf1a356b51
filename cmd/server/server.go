package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nickyhof/DocQL"
	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/sql"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoHistory   = errors.New("activity needs a git-backed store")
)

// Server exposes an engine over a newline-delimited TCP protocol.
type Server struct {
	listener    net.Listener
	instance    *DocQL.Instance
	identity    core.Identity
	auth        *AuthConfig
	limit       rate.Limit
	burst       int
	concurrency int
	engine      *db.Engine
	logger      *slog.Logger
	httpServer  *http.Server
	httpAddr    string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Server)

// WithAuth requires connections to authenticate before executing statements.
func WithAuth(auth *AuthConfig) Option {
	return func(s *Server) {
		s.auth = auth
	}
}

// WithRateLimit limits each connection to perSecond statements with the
// given burst. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.limit = rate.Limit(perSecond)
		s.burst = burst
	}
}

// WithBatchConcurrency bounds the statements of one HTTP batch run at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Server) {
		s.concurrency = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server that executes as identity unless a connection
// authenticates as someone else.
func NewServer(instance *DocQL.Instance, identity core.Identity, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		instance:    instance,
		identity:    identity,
		concurrency: 1,
		logger:      slog.Default(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = instance.Engine(identity, db.WithLogger(s.logger), db.WithHook(observeStatement))
	return s
}

func (s *Server) authEnabled() bool {
	return s.auth != nil && s.auth.Enabled
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.serve(listener)
	return nil
}

// StartTLS is Start with connections wrapped in TLS.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.serve(listener)
	return nil
}

func (s *Server) serve(listener net.Listener) {
	s.listener = listener
	s.logger.Info("server listening", "addr", listener.Addr().String(), "auth", s.authEnabled())

	s.wg.Add(1)
	go s.acceptLoop()
}

// Stop closes the listeners and waits for open connections to finish.
func (s *Server) Stop() error {
	s.cancel()

	var errs []error
	if s.listener != nil {
		errs = append(errs, s.listener.Close())
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, s.httpServer.Shutdown(ctx))
	}
	s.wg.Wait()
	return errors.Join(errs...)
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.limit <= 0 {
		return nil
	}
	burst := s.burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(s.limit, burst)
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	logger := s.logger.With("remote", conn.RemoteAddr().String())
	logger.Debug("client connected")

	// Unblock the read below when the server stops.
	stop := context.AfterFunc(s.ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	sess := &session{}
	limiter := s.newLimiter()
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && s.ctx.Err() == nil {
				logger.Warn("read failed", "error", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			logger.Debug("client disconnected")
			return
		}

		var response Response
		if _, isAuth, _ := authToken(line); isAuth {
			response = s.authenticate(line, sess)
		} else {
			response = s.handleLine(line, sess, limiter)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			logger.Error("failed to encode response", "error", err)
			continue
		}
		if _, err := conn.Write(data); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}
}

func (s *Server) handleLine(line string, sess *session, limiter *rate.Limiter) Response {
	if s.authEnabled() {
		if sess.expired(time.Now()) {
			RejectedTotal.WithLabelValues("auth").Inc()
			return errorResponse(errorTypeAuth, errors.New("token expired: authenticate again"))
		}
		if !sess.authenticated() {
			RejectedTotal.WithLabelValues("auth").Inc()
			return errorResponse(errorTypeAuth, errAuthRequired)
		}
	}

	if limiter != nil && !limiter.Allow() {
		RejectedTotal.WithLabelValues("rate_limit").Inc()
		return errorResponse(errorTypeRateLimited, errRateLimited)
	}

	query := line
	if strings.HasPrefix(line, "{") {
		req, err := DecodeRequest([]byte(line))
		if err != nil {
			return errorResponse(errorTypeMalformed, fmt.Errorf("invalid request: %w", err))
		}
		query = req.Query
	}

	ctx := s.ctx
	if sess.identity != nil {
		ctx = core.WithIdentity(ctx, *sess.identity)
	}

	response, _ := s.execute(ctx, query)
	return response
}

// execute runs one statement and returns its response and HTTP status.
func (s *Server) execute(ctx context.Context, query string) (Response, int) {
	result, err := s.engine.Execute(ctx, query)
	if err != nil {
		if errors.Is(err, sql.ErrUnsupportedOperation) || errors.Is(err, sql.ErrMalformedStatement) {
			RejectedTotal.WithLabelValues("parse").Inc()
		}
		return executionError(err)
	}
	return resultResponse(result), http.StatusOK
}
