package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCatalog = `{"commands":[
  {"name":"ls","summary":"List files","description":"supports recursion","usage":"ls [path] [recursive]","options":[
    {"arg":"path","help":"directory to list"},
    {"arg":"recursive","help":"recurse into subdirectories"}
  ]},
  {"name":"cat","summary":"Print a file","usage":"cat <path>","options":[
    {"arg":"path","help":"file to print"}
  ]}
]}`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.json")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatalf("write sample catalog: %v", err)
	}
	return path
}

func TestLoadAppendsSyntheticTools(t *testing.T) {
	c, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Find("get_shell_info"); !ok {
		t.Fatalf("expected get_shell_info to be present")
	}
	if _, ok := c.Find("get_history"); !ok {
		t.Fatalf("expected get_history to be present")
	}
	if _, ok := c.Find("ls"); !ok {
		t.Fatalf("expected ls to be present")
	}
}

func TestLoadInfersSchemaTypes(t *testing.T) {
	c, _ := Load(writeSample(t))
	ls, ok := c.Find("ls")
	if !ok {
		t.Fatalf("expected ls entry")
	}
	var sawBool, sawString bool
	for _, p := range ls.Properties {
		if p.Name == "recursive" && p.Type == "boolean" {
			sawBool = true
		}
		if p.Name == "path" && p.Type == "string" {
			sawString = true
		}
	}
	if !sawBool || !sawString {
		t.Fatalf("unexpected properties: %+v", ls.Properties)
	}
}

func TestLoadInfersRequiredFromUsage(t *testing.T) {
	c, _ := Load(writeSample(t))
	cat, ok := c.Find("cat")
	if !ok {
		t.Fatalf("expected cat entry")
	}
	if len(cat.Properties) != 1 || !cat.Properties[0].Required {
		t.Fatalf("expected cat's path argument to be required: %+v", cat.Properties)
	}

	ls, ok := c.Find("ls")
	if !ok {
		t.Fatalf("expected ls entry")
	}
	for _, p := range ls.Properties {
		if p.Required {
			t.Fatalf("expected ls's %q argument to be optional (bracketed in usage)", p.Name)
		}
	}
}

func TestLoadRejectsOversizedCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.json")
	big := make([]byte, MaxCatalogBytes+1)
	for i := range big {
		big[i] = ' '
	}
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected oversized catalog to be rejected")
	}
}

func TestLoadCapsToolCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "many.json")
	var doc string
	doc = `{"commands":[`
	for i := 0; i < MaxTools+10; i++ {
		if i > 0 {
			doc += ","
		}
		doc += `{"name":"tool` + itoa(i) + `","summary":"s","usage":"u","options":[]}`
	}
	doc += `]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// MaxTools real entries plus the two synthetic tools.
	if len(c.Tools()) != MaxTools+2 {
		t.Fatalf("expected %d tools, got %d", MaxTools+2, len(c.Tools()))
	}
}

func TestSearchRanksByOverlap(t *testing.T) {
	c, _ := Load(writeSample(t))
	results := c.Search("print file", 5)
	if len(results) == 0 {
		t.Fatalf("expected at least one result")
	}
	if results[0].Name != "cat" {
		t.Fatalf("expected cat to rank first, got %+v", results)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
