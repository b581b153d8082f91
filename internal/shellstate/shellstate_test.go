package shellstate

import "testing"

func TestHistoryOrderAndLimit(t *testing.T) {
	p := New()
	p.RecordCommand("a")
	p.RecordCommand("b")
	p.RecordCommand("c")

	got := p.History(2)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestHistoryDefaultReturnsAll(t *testing.T) {
	p := New()
	p.RecordCommand("x")
	p.RecordCommand("y")
	got := p.History(0)
	if len(got) != 2 {
		t.Fatalf("expected all entries, got %v", got)
	}
}

func TestHistoryWrapsAroundCapacity(t *testing.T) {
	p := New()
	for i := 0; i < historyCapacity+5; i++ {
		p.RecordCommand(itoa(i))
	}
	got := p.History(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	want := []string{itoa(historyCapacity + 2), itoa(historyCapacity + 3), itoa(historyCapacity + 4)}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("at %d: got %q want %q (full: %v)", i, got[i], w, got)
		}
	}
}

func TestEnvFiltersSecrets(t *testing.T) {
	t.Setenv("MY_API_KEY", "s3cr3t")
	t.Setenv("PLAIN_VALUE", "visible")
	p := New()
	env := p.Env()
	if _, ok := env["MY_API_KEY"]; ok {
		t.Fatalf("expected MY_API_KEY to be filtered")
	}
	if env["PLAIN_VALUE"] != "visible" {
		t.Fatalf("expected PLAIN_VALUE to survive, got %v", env)
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
