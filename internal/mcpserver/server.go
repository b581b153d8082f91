// Package mcpserver implements the MCP subsystem's TCP surface: the
// accept loop and server lifecycle (C8), the per-connection handler
// (C7), and the request router (C6) that ties together the catalog,
// safe-exec pipeline, execution tracker, audit log, and shell-state
// provider.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/ushell-mcp/internal/audit"
	"github.com/nextlevelbuilder/ushell-mcp/internal/catalog"
	"github.com/nextlevelbuilder/ushell-mcp/internal/shellstate"
	"github.com/nextlevelbuilder/ushell-mcp/internal/tracker"
)

// Config is the subset of internal/config.Config the server needs, kept
// separate so mcpserver does not import the config package directly
// (the teacher's gateway avoids a config-package import cycle the same
// way, passing plain fields into NewServer).
type Config struct {
	Host               string
	Port               int
	MaxClients         int
	IdleTimeoutSeconds int
	MaxMessageBytes    int
	RateLimitPerSecond float64
	RateLimitBurst     int
	CatalogPath        string
}

// Server owns the listen socket, the admission-controlled client count,
// and the shared collaborators every connection dispatches into.
type Server struct {
	cfg   Config
	shell *shellstate.Provider
	cat   *catalog.Catalog
	track *tracker.Tracker
	aud   *audit.Sink
	tr    Tracer

	mu            sync.Mutex
	activeClients int
	running       bool

	listener net.Listener
	wg       sync.WaitGroup
}

// New constructs a server. cat may be nil — the first list_tools request
// or search_commands call triggers a lazy load via ensureCatalog, matching the
// "cached once per lifetime" invariant without forcing every caller to
// pre-load it.
func New(cfg Config, shell *shellstate.Provider, cat *catalog.Catalog, track *tracker.Tracker, aud *audit.Sink, tr Tracer) *Server {
	if track == nil {
		track = tracker.New()
	}
	if tr == nil {
		tr = noopTracer{}
	}
	return &Server{cfg: cfg, shell: shell, cat: cat, track: track, aud: aud, tr: tr}
}

// Start binds the listener and spawns the accept loop. It returns once
// the socket is bound; the accept loop itself runs until Stop is called
// (ctx is handed to the connection handlers, not watched by the accept
// loop). A Server supports exactly one
// Start -> Stop cycle, per spec.md §4.8.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	slog.Info("mcpserver listening", "addr", addr)

	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

// Stop closes the listener, which unblocks Accept, then waits for the
// accept loop and all outstanding handlers to exit.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	slog.Info("mcpserver stopped")
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stillRunning := s.running
			s.mu.Unlock()
			if !stillRunning {
				return
			}
			slog.Warn("accept failed", "error", err)
			continue
		}

		if !s.admit() {
			writeCapacityError(conn)
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			s.handleConnection(ctx, conn)
		}()
	}
}

// admit enforces MAX_CLIENTS, returning false (without incrementing) if
// the server is already at capacity.
func (s *Server) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeClients >= s.cfg.MaxClients {
		return false
	}
	s.activeClients++
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeClients > 0 {
		s.activeClients--
	}
}

// ActiveClients reports the current admitted-connection count.
func (s *Server) ActiveClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeClients
}

func writeCapacityError(conn net.Conn) {
	msg := `{"id":null,"type":"error","error":"Server connection limit reached"}` + "\n"
	_, _ = conn.Write([]byte(msg))
}

// newConnectionID is a correlation id for log lines and the tracker's
// per-record client id, distinct from the audit record's client field
// (the remote IP), matching the teacher's uuid-per-client convention.
func newConnectionID() string {
	return uuid.NewString()
}

func (s *Server) newLimiter() *rate.Limiter {
	r := s.cfg.RateLimitPerSecond
	if r <= 0 {
		r = 5
	}
	b := s.cfg.RateLimitBurst
	if b <= 0 {
		b = 5
	}
	return rate.NewLimiter(rate.Limit(r), b)
}

// ensureCatalog lazily loads the catalog on first use and caches it for
// the server's lifetime (spec.md §3 invariant).
func (s *Server) ensureCatalog(path string) (*catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cat != nil {
		return s.cat, nil
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	s.cat = c
	return c, nil
}
