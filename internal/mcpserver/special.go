package mcpserver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/ushell-mcp/pkg/protocol"
)

// dispatchSpecialTool routes the five non-exec introspection tools to
// their handlers (C9). tool is guaranteed to be a member of specialTools.
func (rt *router) dispatchSpecialTool(req protocol.RequestFrame, tool string) protocol.ResponseFrame {
	switch tool {
	case "get_shell_info":
		return rt.handleGetShellInfo(req)
	case "get_history":
		return rt.handleGetHistory(req)
	case "get_shell_context":
		return rt.handleGetShellContext(req)
	case "search_commands":
		return rt.handleSearchCommands(req)
	case "suggest_command":
		return rt.handleSuggestCommand(req)
	default:
		return protocol.NewError(req.ID, req.HasID, "Unknown method: "+tool)
	}
}

func (rt *router) handleGetShellInfo(req protocol.RequestFrame) protocol.ResponseFrame {
	cwd, err := rt.srv.shell.Cwd()
	if err != nil {
		cwd = ""
	}
	result := fmt.Sprintf(`{"cwd":"%s","user":"%s","hostname":"%s"}`,
		protocol.EscapeString(cwd),
		protocol.EscapeString(rt.srv.shell.User()),
		protocol.EscapeString(rt.srv.shell.Hostname()),
	)
	return protocol.NewResponse(req.ID, req.HasID, result)
}

func (rt *router) handleGetHistory(req protocol.RequestFrame) protocol.ResponseFrame {
	limit := 10
	if v, ok := req.Field("limit"); ok && v != "" {
		if n, err := parseSmallInt(v); err == nil {
			limit = n
		}
	}
	entries := rt.srv.shell.History(limit)
	result := `{"history":[` + encodeStringArray(entries) + `]}`
	return protocol.NewResponse(req.ID, req.HasID, result)
}

func (rt *router) handleGetShellContext(req protocol.RequestFrame) protocol.ResponseFrame {
	cwd, _ := rt.srv.shell.Cwd()
	history := rt.srv.shell.History(10)
	env := rt.srv.shell.Env()

	var envPairs strings.Builder
	first := true
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !first {
			envPairs.WriteByte(',')
		}
		first = false
		envPairs.WriteString(`"` + protocol.EscapeString(k) + `":"` + protocol.EscapeString(env[k]) + `"`)
	}

	result := fmt.Sprintf(`{"cwd":"%s","user":"%s","history":[%s],"env":{%s}}`,
		protocol.EscapeString(cwd),
		protocol.EscapeString(rt.srv.shell.User()),
		encodeStringArray(history),
		envPairs.String(),
	)
	return protocol.NewResponse(req.ID, req.HasID, result)
}

func (rt *router) handleSearchCommands(req protocol.RequestFrame) protocol.ResponseFrame {
	query, ok := req.Field("query")
	if !ok || query == "" {
		return protocol.NewError(req.ID, req.HasID, "Missing query parameter")
	}
	limit := 5
	if v, ok := req.Field("limit"); ok && v != "" {
		if n, err := parseSmallInt(v); err == nil {
			limit = n
		}
	}

	cat, err := rt.srv.ensureCatalog(rt.srv.cfg.CatalogPath)
	if err != nil {
		return protocol.NewError(req.ID, req.HasID, "Failed to load catalog: "+err.Error())
	}
	results := cat.Search(query, limit)

	var items strings.Builder
	for i, r := range results {
		if i > 0 {
			items.WriteByte(',')
		}
		items.WriteString(fmt.Sprintf(`{"name":"%s","description":"%s","score":%d}`,
			protocol.EscapeString(r.Name), protocol.EscapeString(r.Description), r.Score))
	}

	result := fmt.Sprintf(`{"query":"%s","results":[%s]}`, protocol.EscapeString(query), items.String())
	return protocol.NewResponse(req.ID, req.HasID, result)
}

// suggestionRules are small keyword rules matched against the lower-cased
// query, in order; the first rule whose keywords are all present wins.
var suggestionRules = []struct {
	keywords    []string
	command     string
	explanation string
}{
	{[]string{"list", "file"}, "ls -la", "lists files in the current directory, including hidden ones"},
	{[]string{"find", "python"}, "find . -name '*.py'", "recursively finds Python source files"},
	{[]string{"current", "directory"}, "pwd", "prints the current working directory"},
	{[]string{"disk", "space"}, "df -h", "shows disk usage in human-readable form"},
	{[]string{"search", "text"}, "grep -r", "recursively searches file contents for a pattern"},
	{[]string{"process"}, "ps aux", "lists running processes"},
}

func (rt *router) handleSuggestCommand(req protocol.RequestFrame) protocol.ResponseFrame {
	query, ok := req.Field("query")
	if !ok || query == "" {
		return protocol.NewError(req.ID, req.HasID, "Missing query parameter")
	}
	lower := strings.ToLower(query)

	for _, rule := range suggestionRules {
		matched := true
		for _, kw := range rule.keywords {
			if !strings.Contains(lower, kw) {
				matched = false
				break
			}
		}
		if matched {
			result := fmt.Sprintf(`{"query":"%s","command":"%s","explanation":"%s"}`,
				protocol.EscapeString(query), protocol.EscapeString(rule.command), protocol.EscapeString(rule.explanation))
			return protocol.NewResponse(req.ID, req.HasID, result)
		}
	}

	result := fmt.Sprintf(`{"query":"%s","command":"","explanation":"no matching suggestion"}`, protocol.EscapeString(query))
	return protocol.NewResponse(req.ID, req.HasID, result)
}

func encodeStringArray(items []string) string {
	var b strings.Builder
	for i, s := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"` + protocol.EscapeString(s) + `"`)
	}
	return b.String()
}

func parseSmallInt(s string) (int, error) {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not an integer")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
