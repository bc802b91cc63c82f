// Package httpsse implements the HTTP/SSE transport spec §4.13 names:
// POST/GET/OPTIONS /mcp, GET /health, an Origin whitelist, mcp-session-id
// lifecycle with idle expiry, and two-phase graceful shutdown. Grounded on
// Tributary-ai-services-tas-agent-builder/cmd/main.go's gin + gin-contrib/cors
// router setup (teacher deps, wired here since the copied teacher itself
// uses a bare net/http mux) and on internal/agentd/handlers_chat.go's SSE
// framing (http.Flusher, "data: ...\n\n", a keepalive ticker goroutine).
package httpsse

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"qdrantloader/internal/rpc"
)

// SessionHeader is the header carrying a session's identity across requests.
const SessionHeader = "mcp-session-id"

// ProtocolHeader is soft-validated: present but mismatched values are logged,
// not rejected (spec §4.13 — "soft validation").
const ProtocolHeader = "mcp-protocol-version"

// sessionStore tracks session-id -> last-seen time with a bounded idle
// timeout, reaped by a background goroutine (spec §4.13: "3600s idle expiry").
type sessionStore struct {
	mu          sync.Mutex
	lastSeen    map[string]time.Time
	idleTimeout time.Duration
}

func newSessionStore(idleTimeout time.Duration) *sessionStore {
	if idleTimeout <= 0 {
		idleTimeout = time.Hour
	}
	return &sessionStore{lastSeen: map[string]time.Time{}, idleTimeout: idleTimeout}
}

func (s *sessionStore) touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[id] = time.Now()
}

func (s *sessionStore) reapExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.idleTimeout)
	for id, t := range s.lastSeen {
		if t.Before(cutoff) {
			delete(s.lastSeen, id)
		}
	}
}

// Config configures one Server instance (spec §6's http section).
type Config struct {
	Host                  string
	Port                  int
	DrainTimeout          time.Duration
	ShutdownTimeout       time.Duration
	SessionIdleTimeout    time.Duration
}

// Server is the HTTP/SSE transport around one rpc.Dispatcher.
type Server struct {
	cfg        Config
	dispatcher *rpc.Dispatcher
	sessions   *sessionStore
	httpServer *http.Server

	inFlight sync.WaitGroup
}

// New builds a Server with routes registered but not yet listening.
func New(cfg Config, d *rpc.Dispatcher) *Server {
	s := &Server{cfg: cfg, dispatcher: d, sessions: newSessionStore(cfg.SessionIdleTimeout)}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  isAllowedOrigin,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", SessionHeader, ProtocolHeader},
		AllowCredentials: true,
	}))

	router.GET("/health", s.handleHealth)
	router.POST("/mcp", s.handlePost)
	router.GET("/mcp", s.handleSSE)
	router.OPTIONS("/mcp", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}
	return s
}

// isAllowedOrigin implements spec §4.13's Origin whitelist: localhost or
// 127.0.0.1 at any port are allowed, a missing Origin header is permitted
// (same-process / non-browser clients), anything else is rejected (403).
func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	for _, prefix := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			rest := origin[len(prefix):]
			return rest == "" || strings.HasPrefix(rest, ":")
		}
	}
	return false
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) sessionID(c *gin.Context) string {
	id := c.GetHeader(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	s.sessions.touch(id)
	c.Header(SessionHeader, id)
	return id
}

func (s *Server) handlePost(c *gin.Context) {
	s.inFlight.Add(1)
	defer s.inFlight.Done()

	s.sessionID(c)
	if v := c.GetHeader(ProtocolHeader); v != "" && v != "2024-11-05" && v != "2025-03-26" {
		log.Warn().Str("protocol_version", v).Msg("httpsse: unrecognized mcp-protocol-version, proceeding anyway")
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, rpc.NewError(rpc.CodeParseError, "Parse error", err.Error()))
		return
	}

	resp := s.dispatcher.HandleRequest(c.Request.Context(), body)
	if resp == nil {
		c.Status(http.StatusAccepted) // notification: no body (spec §4.13)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleSSE serves GET /mcp as a long-lived event stream carrying periodic
// keepalive comments. Server-initiated notifications beyond keepalive are an
// unresolved design question (spec §9) and are not emitted here.
func (s *Server) handleSSE(c *gin.Context) {
	s.inFlight.Add(1)
	defer s.inFlight.Done()

	id := s.sessionID(c)
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.touch(id)
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// Start begins listening and runs a background session reaper until ctx is
// canceled. It blocks until Shutdown completes or ListenAndServe fails.
func (s *Server) Start(ctx context.Context) error {
	reapCtx, cancelReap := context.WithCancel(ctx)
	defer cancelReap()
	go s.reapLoop(reapCtx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.reapExpired()
		}
	}
}

// Shutdown runs the two-phase graceful shutdown spec §4.13 names: phase one
// drains non-streaming requests within DrainTimeout, phase two waits for all
// in-flight requests (including SSE streams) up to ShutdownTimeout total,
// then force-exits by closing the listener outright.
func (s *Server) Shutdown() error {
	drain := s.cfg.DrainTimeout
	if drain <= 0 {
		drain = 10 * time.Second
	}
	total := s.cfg.ShutdownTimeout
	if total <= 0 {
		total = 30 * time.Second
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := s.httpServer.Shutdown(drainCtx); err == nil {
		log.Info().Msg("httpsse: drained within phase one timeout")
		return nil
	}
	log.Warn().Dur("timeout", drain).Msg("httpsse: phase one drain timed out, waiting on in-flight streams")

	done := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(done)
	}()

	remaining := total - drain
	if remaining < 0 {
		remaining = 0
	}
	select {
	case <-done:
		return nil
	case <-time.After(remaining):
		log.Error().Msg("httpsse: phase two timeout exceeded, forcing close")
		return s.httpServer.Close()
	}
}
