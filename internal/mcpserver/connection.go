package mcpserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/ushell-mcp/pkg/protocol"
)

const idleTimeoutDefault = 60 * time.Second
const maxMessageBytesDefault = 16 * 1024

// handleConnection is one accepted client's lifetime: read newline
// delimited messages with an idle timeout, enforce the per-message size
// cap, dispatch each to the router, and write back exactly one response
// line per request before reading the next (spec.md §5: strictly
// request/response serialized per connection).
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	connID := newConnectionID()
	remote := "unknown"
	if host, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
		remote = host
	}
	slog.Info("client connected", "conn_id", connID, "remote", remote)
	defer func() {
		_ = conn.Close()
		slog.Info("client disconnected", "conn_id", connID)
	}()

	idleTimeout := idleTimeoutDefault
	if s.cfg.IdleTimeoutSeconds > 0 {
		idleTimeout = time.Duration(s.cfg.IdleTimeoutSeconds) * time.Second
	}
	maxMessageBytes := maxMessageBytesDefault
	if s.cfg.MaxMessageBytes > 0 {
		maxMessageBytes = s.cfg.MaxMessageBytes
	}

	limiter := s.newLimiter()
	emit := func(f protocol.ResponseFrame) { writeLine(conn, f.Encode()) }
	router := newRouter(s, connID, remote, limiter, emit)
	reader := bufio.NewReaderSize(conn, maxMessageBytes+1)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))

		line, err := readMessage(reader, maxMessageBytes)
		if err != nil {
			if errors.Is(err, errOversized) {
				writeLine(conn, protocol.NewError("", false, "Request too large").Encode())
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				slog.Info("client idle timeout", "conn_id", connID)
				return
			}
			return // graceful close or read error: exit silently
		}
		if line == nil {
			return // graceful close (EOF with no partial data)
		}
		if len(line) == 0 {
			continue // blank line, keep reading
		}

		resp := router.Dispatch(ctx, line)
		emit(resp)
	}
}

var errOversized = errors.New("message too large")

// readMessage reads one newline-terminated line, capped at maxBytes. It
// returns (nil, nil) on a graceful close with no data read, and
// errOversized if the line exceeds maxBytes before a newline is found.
func readMessage(r *bufio.Reader, maxBytes int) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if len(line) > maxBytes {
		return nil, errOversized
	}
	if err == nil {
		return trimNewline(line), nil
	}
	if errors.Is(err, io.EOF) {
		if len(line) == 0 {
			return nil, nil
		}
		return trimNewline(line), nil
	}
	return nil, err
}

func trimNewline(b []byte) []byte {
	n := len(b)
	if n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}

func writeLine(conn net.Conn, line string) {
	_, _ = conn.Write([]byte(line + "\n"))
}

// rateLimited reports whether a call_tool request should be rejected by
// the per-connection throttle (SPEC_FULL.md §5) ahead of sanitization.
func rateLimited(limiter *rate.Limiter) bool {
	return !limiter.Allow()
}
