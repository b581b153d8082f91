// Package catalog loads the external command catalog document and turns
// it into the tools array list_tools returns, inferring a JSON-schema
// per tool and caching the result for the server's lifetime (C4).
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/ushell-mcp/pkg/protocol"
)

// MaxCatalogBytes and MaxTools bound the document the loader will accept.
const (
	MaxCatalogBytes = 512 * 1024
	MaxTools        = 100
)

// option is one raw catalog option entry.
type option struct {
	Arg  string
	Help string
}

// entry is one raw catalog command entry, before being turned into a
// protocol.ToolDescriptor.
type entry struct {
	Name        string
	Summary     string
	Description string
	Usage       string
	Options     []option
}

// Catalog is the cached, ready-to-serve tool list.
type Catalog struct {
	tools []protocol.ToolDescriptor
}

// Load reads path (field-extraction only, tolerant of idiosyncratic
// whitespace — it does not require a fully conformant JSON document any
// more than pkg/protocol does), builds the tool descriptors, and appends
// the two synthetic introspection tools unconditionally.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(data) > MaxCatalogBytes {
		return nil, fmt.Errorf("catalog exceeds %d bytes", MaxCatalogBytes)
	}

	entries, err := parseEntries(data)
	if err != nil {
		return nil, err
	}
	if len(entries) > MaxTools {
		entries = entries[:MaxTools]
	}

	tools := make([]protocol.ToolDescriptor, 0, len(entries)+2)
	for _, e := range entries {
		tools = append(tools, toDescriptor(e))
	}
	tools = append(tools, syntheticTools()...)

	return &Catalog{tools: tools}, nil
}

// Tools returns the cached descriptors.
func (c *Catalog) Tools() []protocol.ToolDescriptor {
	return c.tools
}

// Find returns the descriptor named name, if present.
func (c *Catalog) Find(name string) (protocol.ToolDescriptor, bool) {
	for _, t := range c.tools {
		if t.Name == name {
			return t, true
		}
	}
	return protocol.ToolDescriptor{}, false
}

// Encode renders the full tools array as a raw JSON literal for
// embedding in a list_tools response.
func (c *Catalog) Encode() string {
	var b strings.Builder
	b.WriteString(`{"tools":[`)
	for i, t := range c.tools {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.Encode())
	}
	b.WriteString("]}")
	return b.String()
}

func toDescriptor(e entry) protocol.ToolDescriptor {
	desc := e.Summary
	if e.Description != "" {
		desc = e.Summary + ": " + e.Description
	}
	required := protocol.RequiredArgs(e.Usage)
	props := make([]protocol.ToolProperty, 0, len(e.Options))
	for _, opt := range e.Options {
		if opt.Arg == "" {
			continue
		}
		props = append(props, protocol.ToolProperty{
			Name:        opt.Arg,
			Type:        protocol.InferPropertyType(opt.Arg),
			Description: opt.Help,
			Required:    required[opt.Arg],
		})
	}
	return protocol.ToolDescriptor{Name: e.Name, Description: desc, Properties: props}
}

func syntheticTools() []protocol.ToolDescriptor {
	return []protocol.ToolDescriptor{
		{
			Name:        "get_shell_info",
			Description: "Return the shell's current working directory, user, and hostname",
		},
		{
			Name:        "get_history",
			Description: "Return recent command history",
			Properties: []protocol.ToolProperty{
				{Name: "limit", Type: "integer", Description: "maximum number of history entries to return"},
			},
		},
	}
}

// parseEntries scans the "commands" array in doc and extracts each
// object's fields via pkg/protocol's field extractor, exactly as the
// wire codec does — the catalog file gets no more parsing rigor than a
// client request does.
func parseEntries(doc []byte) ([]entry, error) {
	arr, ok := protocol.ExtractObject(doc, "commands")
	if !ok {
		return nil, fmt.Errorf("catalog missing \"commands\" array")
	}
	objs := splitTopLevelObjects(arr)

	entries := make([]entry, 0, len(objs))
	for _, obj := range objs {
		name, ok := protocol.ExtractField(obj, "name")
		if !ok || name == "" {
			continue
		}
		summary, _ := protocol.ExtractField(obj, "summary")
		description, _ := protocol.ExtractField(obj, "description")
		usage, _ := protocol.ExtractField(obj, "usage")
		entries = append(entries, entry{
			Name:        name,
			Summary:     summary,
			Description: description,
			Usage:       usage,
			Options:     parseOptions(obj),
		})
	}
	return entries, nil
}

// parseOptions extracts the "options" array of a single command object.
func parseOptions(obj []byte) []option {
	arr, ok := protocol.ExtractObject(obj, "options")
	if !ok {
		return nil
	}
	objs := splitTopLevelObjects(arr)
	opts := make([]option, 0, len(objs))
	for _, o := range objs {
		arg, _ := protocol.ExtractField(o, "arg")
		help, _ := protocol.ExtractField(o, "help")
		opts = append(opts, option{Arg: arg, Help: help})
	}
	return opts
}

// splitTopLevelObjects splits a `[{...},{...}]` literal into its
// individual `{...}` members, honoring quoted strings so braces inside
// string values don't confuse the split.
func splitTopLevelObjects(arr []byte) [][]byte {
	var out [][]byte
	depth := 0
	inString := false
	start := -1
	for i := 0; i < len(arr); i++ {
		c := arr[i]
		if inString {
			if c == '\\' {
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, arr[start:i+1])
				start = -1
			}
		}
	}
	return out
}

// SortByScoreDesc stable-sorts results by score descending, preserving
// catalog order among ties — used by search_commands (C9).
func SortByScoreDesc(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// SearchResult is one search_commands hit.
type SearchResult struct {
	Name        string
	Description string
	Score       int
}
