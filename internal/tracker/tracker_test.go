package tracker

import "testing"

func TestTrackAssignsMonotonicIDs(t *testing.T) {
	tr := New()
	id1, err := tr.Track("ls", "conn-1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := tr.Track("cat", "conn-1", 101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %q twice", id1)
	}
}

func TestTrackFullReportsError(t *testing.T) {
	tr := New()
	for i := 0; i < Capacity; i++ {
		if _, err := tr.Track("ls", "conn", i); err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
	}
	if _, err := tr.Track("ls", "conn", 999); err == nil {
		t.Fatalf("expected tracking-full error")
	}
}

func TestUpdateAndFind(t *testing.T) {
	tr := New()
	id, _ := tr.Track("ls", "conn", 1)
	rec, ok := tr.Find(id)
	if !ok || rec.Status != StatusRunning {
		t.Fatalf("unexpected record: %+v, %v", rec, ok)
	}
	if !tr.Update(id, StatusCompleted) {
		t.Fatalf("expected update to succeed")
	}
	rec, _ = tr.Find(id)
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %d", rec.Status)
	}
}

func TestCleanupFreesSlot(t *testing.T) {
	tr := New()
	id, _ := tr.Track("ls", "conn", 1)
	tr.Cleanup(id)
	if _, ok := tr.Find(id); ok {
		t.Fatalf("expected record to be gone after cleanup")
	}
	for i := 0; i < Capacity; i++ {
		if _, err := tr.Track("ls", "conn", i); err != nil {
			t.Fatalf("expected freed slot to be reusable, failed at %d: %v", i, err)
		}
	}
}

func TestFindUnknownID(t *testing.T) {
	tr := New()
	if _, ok := tr.Find("999"); ok {
		t.Fatalf("expected unknown id to report not found")
	}
}
