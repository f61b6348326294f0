// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/ollama"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the address the Ollama daemon listens on.
	DefaultAddr = "127.0.0.1:11434"

	// DefaultDelay is the pause between streamed words.
	DefaultDelay = 40 * time.Millisecond

	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is reported by /api/version.
	Version = "0.5.0-mock"
)

// DefaultModels are installed when Options.Models is empty.
var DefaultModels = []string{"llama3.2:latest", "mistral:7b"}

// ============================================================================
// SERVER
// ============================================================================

// Options configures a mock server.
type Options struct {
	// Addr is the listen address (default: 127.0.0.1:11434).
	Addr string

	// Script is the reply text. When empty the server echoes the last user
	// message.
	Script string

	// Delay is the pause between streamed words (default: 40ms; negative
	// means none).
	Delay time.Duration

	// FirstByteDelay is the pause before the first word.
	FirstByteDelay time.Duration

	// DropAfter closes the connection without a done line after this many
	// words (0 = never).
	DropAfter int

	// Models are the installed model names.
	Models []string

	// Logger receives one line per request. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Server is a scripted stand-in for the Ollama HTTP API. It serves
// /api/chat, /api/tags, /api/show, /api/pull and /api/version.
type Server struct {
	opts   Options
	engine *gin.Engine
	server *http.Server
	log    *zap.Logger

	mu     sync.RWMutex
	models map[string]time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if len(opts.Models) == 0 {
		opts.Models = DefaultModels
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		opts:   opts,
		log:    opts.Logger,
		models: make(map[string]time.Time, len(opts.Models)),
	}
	now := time.Now()
	for _, m := range opts.Models {
		s.models[m] = now
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(RecoveryMiddleware(s.log), LoggingMiddleware(s.log), BodyLimitMiddleware(MaxRequestBodySize))
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.POST("/chat", s.handleChat)
	api.GET("/tags", s.handleTags)
	api.POST("/show", s.handleShow)
	api.POST("/pull", s.handlePull)
	api.GET("/version", s.handleVersion)

	s.engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Ollama is running")
	})
}

// ============================================================================
// MODEL REGISTRY
// ============================================================================

// lookup returns the installed name for model, accepting a missing
// ":latest" tag the way Ollama does.
func (s *Server) lookup(model string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.models[model]; ok {
		return model, true
	}
	if !strings.Contains(model, ":") {
		latest := model + ":latest"
		if _, ok := s.models[latest]; ok {
			return latest, true
		}
	}
	return "", false
}

func (s *Server) install(model string) {
	if !strings.Contains(model, ":") {
		model += ":latest"
	}
	s.mu.Lock()
	s.models[model] = time.Now()
	s.mu.Unlock()
}

// list returns the installed models sorted by name.
func (s *Server) list() []ollama.ModelInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ollama.ModelInfo, 0, len(s.models))
	for name, modified := range s.models {
		infos = append(infos, modelInfo(name, modified))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func modelInfo(name string, modified time.Time) ollama.ModelInfo {
	family := name
	if i := strings.IndexAny(family, ":0123456789."); i > 0 {
		family = family[:i]
	}
	return ollama.ModelInfo{
		Name:       name,
		ModifiedAt: modified,
		Size:       int64(len(name)) * 100 * 1024 * 1024,
		Digest:     fmt.Sprintf("%x", len(name)*7919),
		Details: ollama.ModelDetails{
			Format:            "gguf",
			Family:            family,
			Families:          []string{family},
			ParameterSize:     "3.2B",
			QuantizationLevel: "Q4_K_M",
		},
	}
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server.start", zap.String("addr", ln.Addr().String()), zap.String("version", Version))
		errc <- s.server.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("server.shutdown")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errc
	return nil
}
