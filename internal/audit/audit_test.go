package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledSinkDoesNotPanic(t *testing.T) {
	s := Open("")
	s.Record("1.2.3.4", "ls", "-la", 0, true)
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestRecordWritesOneLinePerCall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")
	s := Open(path)
	defer s.Close()

	s.Record("127.0.0.1", "ls", "-la", 0, true)
	s.Record("127.0.0.1", "cat", "missing", 1, false)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}
	if !strings.Contains(lines[0], `"status":"success"`) {
		t.Fatalf("expected success status: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"status":"failed"`) {
		t.Fatalf("expected failed status: %s", lines[1])
	}
}
