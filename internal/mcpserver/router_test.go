package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/ushell-mcp/internal/audit"
	"github.com/nextlevelbuilder/ushell-mcp/internal/catalog"
	"github.com/nextlevelbuilder/ushell-mcp/internal/shellstate"
	"github.com/nextlevelbuilder/ushell-mcp/internal/tracker"
	"github.com/nextlevelbuilder/ushell-mcp/pkg/protocol"
)

const testCatalog = `{"commands":[
  {"name":"ls","summary":"List files","usage":"ls [path]","options":[{"arg":"path","help":"directory"}]},
  {"name":"cat","summary":"Print a file","usage":"cat <path>","options":[{"arg":"path","help":"file"}]}
]}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.json")
	if err := os.WriteFile(path, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	cfg := Config{
		Host: "127.0.0.1", Port: 0, MaxClients: 10,
		IdleTimeoutSeconds: 60, MaxMessageBytes: 16 * 1024,
		RateLimitPerSecond: 1000, RateLimitBurst: 1000,
		CatalogPath: path,
	}
	return New(cfg, shellstate.New(), cat, tracker.New(), audit.Open(""), nil)
}

func newTestRouter(srv *Server) *router {
	limiter := rate.NewLimiter(rate.Limit(1000), 1000)
	notify := func(protocol.ResponseFrame) {}
	return newRouter(srv, "conn-test", "127.0.0.1:9999", limiter, notify)
}

func TestInitializeBoundaryScenario(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"1","method":"initialize"}`))
	enc := resp.Encode()
	if !strings.Contains(enc, `"id":"1"`) || !strings.Contains(enc, `"type":"response"`) ||
		!strings.Contains(enc, `"server":"unified-shell MCP"`) || !strings.Contains(enc, `"version":"1.0"`) {
		t.Fatalf("unexpected initialize response: %s", enc)
	}
}

func TestBlacklistRejectedBoundaryScenario(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"2","method":"call_tool","params":{"tool":"rm","text":"foo"}}`))
	enc := resp.Encode()
	if !strings.Contains(enc, `"type":"error"`) || !strings.Contains(enc, "not found or not allowed") {
		t.Fatalf("unexpected response: %s", enc)
	}
}

// A rejected command is still an attempted invocation and must reach
// shell history (shellstate.Provider.RecordCommand's "whitelisted or
// not" contract), even though it gets no audit record or notification.
func TestBlacklistRejectedStillRecordsHistory(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	rt.Dispatch(context.Background(), []byte(`{"id":"2","method":"call_tool","params":{"tool":"rm","text":"foo"}}`))
	history := srv.shell.History(1)
	if len(history) != 1 || !strings.HasPrefix(history[0], "rm ") {
		t.Fatalf("expected rejected command to be recorded in history, got %+v", history)
	}
}

func TestAliasResolvedBoundaryScenario(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"3","method":"call_tool","params":{"tool":"list_directory"}}`))
	enc := resp.Encode()
	if !strings.Contains(enc, `"type":"response"`) || !strings.Contains(enc, `"tool":"ls"`) {
		t.Fatalf("unexpected response: %s", enc)
	}
}

func TestPathTraversalRejectedBoundaryScenario(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"4","method":"call_tool","params":{"tool":"cat","text":"../../etc/passwd"}}`))
	enc := resp.Encode()
	if !strings.Contains(enc, `"type":"error"`) || !strings.Contains(enc, "Invalid argument") {
		t.Fatalf("unexpected response: %s", enc)
	}
}

// A sanitization failure is a Validation error (spec.md §7 Taxonomy item
// 2): no child is ever forked, so it must produce no audit record and no
// tool_failed notification, only the error response itself.
func TestPathTraversalRejectedHasNoSideEffects(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "commands.json")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	auditPath := filepath.Join(dir, "audit.log")
	cfg := Config{
		Host: "127.0.0.1", Port: 0, MaxClients: 10,
		IdleTimeoutSeconds: 60, MaxMessageBytes: 16 * 1024,
		RateLimitPerSecond: 1000, RateLimitBurst: 1000,
		CatalogPath: catalogPath,
	}
	srv := New(cfg, shellstate.New(), cat, tracker.New(), audit.Open(auditPath), nil)

	var notifications []protocol.ResponseFrame
	limiter := rate.NewLimiter(rate.Limit(1000), 1000)
	rt := newRouter(srv, "conn-test", "127.0.0.1:9999", limiter, func(f protocol.ResponseFrame) {
		notifications = append(notifications, f)
	})

	resp := rt.Dispatch(context.Background(), []byte(`{"id":"4","method":"call_tool","params":{"tool":"cat","text":"../../etc/passwd"}}`))
	if !strings.Contains(resp.Encode(), `"type":"error"`) {
		t.Fatalf("unexpected response: %s", resp.Encode())
	}
	for _, n := range notifications {
		if n.Type == protocol.TypeNotification && n.Event == protocol.EventToolFailed {
			t.Fatalf("expected no tool_failed notification for a pre-spawn validation failure, got %+v", n)
		}
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected no audit record for a pre-spawn validation failure, got %q", data)
	}
}

// Tracker-capacity exhaustion is likewise a pre-spawn Validation error.
func TestTrackerFullHasNoSideEffects(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "commands.json")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	auditPath := filepath.Join(dir, "audit.log")
	cfg := Config{
		Host: "127.0.0.1", Port: 0, MaxClients: 10,
		IdleTimeoutSeconds: 60, MaxMessageBytes: 16 * 1024,
		RateLimitPerSecond: 1000, RateLimitBurst: 1000,
		CatalogPath: catalogPath,
	}
	track := tracker.New()
	for i := 0; i < tracker.Capacity; i++ {
		if _, err := track.Track("ls", "conn-filler", 1); err != nil {
			t.Fatalf("fill tracker: %v", err)
		}
	}
	srv := New(cfg, shellstate.New(), cat, track, audit.Open(auditPath), nil)

	var notifications []protocol.ResponseFrame
	limiter := rate.NewLimiter(rate.Limit(1000), 1000)
	rt := newRouter(srv, "conn-test", "127.0.0.1:9999", limiter, func(f protocol.ResponseFrame) {
		notifications = append(notifications, f)
	})

	resp := rt.Dispatch(context.Background(), []byte(`{"id":"5","method":"call_tool","params":{"tool":"ls"}}`))
	if !strings.Contains(resp.Encode(), `"type":"error"`) {
		t.Fatalf("unexpected response: %s", resp.Encode())
	}
	for _, n := range notifications {
		if n.Type == protocol.TypeNotification && n.Event == protocol.EventToolFailed {
			t.Fatalf("expected no tool_failed notification when the tracker is full, got %+v", n)
		}
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected no audit record when the tracker is full, got %q", data)
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"9","method":"not_a_method"}`))
	enc := resp.Encode()
	if !strings.Contains(enc, "Unknown method") {
		t.Fatalf("unexpected response: %s", enc)
	}
}

func TestMissingMethodProtocolError(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"10"}`))
	enc := resp.Encode()
	if !strings.Contains(enc, `"id":null`) || !strings.Contains(enc, "Failed to parse request") {
		t.Fatalf("unexpected response: %s", enc)
	}
}

func TestListToolsIncludesSyntheticTools(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"5","method":"list_tools"}`))
	enc := resp.Encode()
	if !strings.Contains(enc, "get_shell_info") || !strings.Contains(enc, "get_history") {
		t.Fatalf("unexpected response: %s", enc)
	}
}

func TestGetExecutionStatusUnknownID(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"6","method":"get_execution_status","params":{"execution_id":"999"}}`))
	enc := resp.Encode()
	if !strings.Contains(enc, `"type":"error"`) {
		t.Fatalf("unexpected response: %s", enc)
	}
}

func TestSuggestCommandMissingQuery(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"7","method":"call_tool","params":{"tool":"suggest_command"}}`))
	enc := resp.Encode()
	if !strings.Contains(enc, "Missing query parameter") {
		t.Fatalf("unexpected response: %s", enc)
	}
}

func TestSuggestCommandListFiles(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRouter(srv)
	resp := rt.Dispatch(context.Background(), []byte(`{"id":"8","method":"call_tool","params":{"tool":"suggest_command","query":"list files here"}}`))
	enc := resp.Encode()
	if !strings.Contains(enc, `"command":"ls -la"`) {
		t.Fatalf("unexpected response: %s", enc)
	}
}
