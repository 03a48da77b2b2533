// Package web serves the playground over HTTP: a stateless JSON API for
// sharing and checking, and a websocket that hosts one live session per
// connection.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"lintpad/internal/analysis"
	"lintpad/internal/config"
	"lintpad/internal/schema"
	"lintpad/internal/share"
	"lintpad/internal/trace"
)

const shutdownGrace = 5 * time.Second

type Options struct {
	Catalog *schema.Catalog
	Engine  analysis.Engine
	// DefaultSource seeds sessions opened without a token.
	DefaultSource string
	Tracer        trace.Tracer
	Logger        *slog.Logger
}

type Server struct {
	opts    Options
	log     *slog.Logger
	metrics *Metrics
	runner  *analysis.Runner
	router  *gin.Engine

	mu       sync.Mutex
	sessions map[string]*socketSession
}

// New builds a server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("web: engine is required")
	}
	if opts.Catalog == nil {
		opts.Catalog = schema.Builtin()
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = share.DefaultSource
	}
	s := &Server{
		opts:     opts,
		log:      opts.Logger,
		metrics:  NewMetrics(),
		sessions: make(map[string]*socketSession),
	}
	s.runner = analysis.NewRunner(opts.Engine,
		analysis.WithTracer(opts.Tracer),
		analysis.WithObserver(s.metrics.Observe))
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/schema", s.handleSchema)
	api.POST("/share", s.handleShareEncode)
	api.GET("/share/:token", s.handleShareDecode)
	api.POST("/check", s.handleCheck)

	r.GET("/ws", s.handleSocket)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Sessions reports the number of live websocket sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("playground listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	s.closeSessions()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return nil
}

func (s *Server) addSession(sess *socketSession) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.metrics.sessionOpened()
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.metrics.sessionClosed()
	}
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	live := make([]*socketSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()
	for _, sess := range live {
		sess.close()
	}
}

// normalize rebuilds cfg through the catalog, rejecting unknown options and
// dropping entries equal to their default.
func (s *Server) normalize(cfg config.Config) (config.Config, error) {
	out := config.Config{}
	for group, fields := range cfg {
		for field, value := range fields {
			if _, ok := s.opts.Catalog.Lookup(group, field); !ok {
				return nil, fmt.Errorf("unknown option %s.%s", group, field)
			}
			out = config.SetField(s.opts.Catalog, out, group, field, value)
		}
	}
	return out, nil
}
