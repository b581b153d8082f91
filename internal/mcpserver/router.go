package mcpserver

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/ushell-mcp/pkg/protocol"
)

// router parses one request line, dispatches on method name, and
// returns the response envelope to write back. One router is created
// per connection so it can carry connection-scoped state (id, remote
// address, rate limiter) without a map lookup per request.
type router struct {
	srv     *Server
	connID  string
	remote  string
	limiter *rate.Limiter
	notify  func(protocol.ResponseFrame)
}

func newRouter(srv *Server, connID, remote string, limiter *rate.Limiter, notify func(protocol.ResponseFrame)) *router {
	return &router{srv: srv, connID: connID, remote: remote, limiter: limiter, notify: notify}
}

// Dispatch parses line and routes it to the matching handler. A
// malformed envelope (no method field) and an unknown method both
// produce error envelopes per spec.md §4.6, never a panic.
func (rt *router) Dispatch(ctx context.Context, line []byte) protocol.ResponseFrame {
	req, ok := protocol.ParseRequest(line)
	if !ok {
		return protocol.NewError("", false, "Failed to parse request")
	}

	switch req.Method {
	case protocol.MethodInitialize:
		return rt.handleInitialize(req)
	case protocol.MethodListTools:
		return rt.handleListTools(req)
	case protocol.MethodCallTool:
		return rt.handleCallTool(ctx, req)
	case protocol.MethodGetExecutionStatus:
		return rt.handleGetExecutionStatus(req)
	case protocol.MethodCancelExecution:
		return rt.handleCancelExecution(req)
	default:
		return protocol.NewError(req.ID, req.HasID, "Unknown method: "+req.Method)
	}
}

func (rt *router) handleInitialize(req protocol.RequestFrame) protocol.ResponseFrame {
	result := `{"server":"unified-shell MCP","version":"1.0"}`
	return protocol.NewResponse(req.ID, req.HasID, result)
}

func (rt *router) handleListTools(req protocol.RequestFrame) protocol.ResponseFrame {
	cat, err := rt.srv.ensureCatalog(rt.srv.cfg.CatalogPath)
	if err != nil {
		return protocol.NewError(req.ID, req.HasID, "Failed to load catalog: "+err.Error())
	}
	return protocol.NewResponse(req.ID, req.HasID, cat.Encode())
}
