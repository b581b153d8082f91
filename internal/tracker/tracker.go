// Package tracker implements the fixed-capacity execution table (C5): a
// single-locked registry of in-flight and recently-finished invocations,
// keyed by a monotonically incremented decimal id.
package tracker

import (
	"fmt"
	"sync"
	"time"
)

// Status values for an execution record. Running is non-terminal;
// Completed and Failed (which also covers cancellation) are terminal.
const (
	StatusRunning   = 0
	StatusCompleted = 1
	StatusFailed    = 2
)

// Capacity is the fixed number of concurrently tracked executions.
const Capacity = 32

// Record is one execution's bookkeeping.
type Record struct {
	ID        string
	ToolName  string
	ClientID  string
	ChildPID  int
	StartTime time.Time
	Status    int
}

type slot struct {
	used   bool
	record Record
}

// Tracker is the fixed-capacity table. The zero value is not usable; use
// New.
type Tracker struct {
	mu      sync.Mutex
	slots   [Capacity]slot
	counter uint64
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// Track reserves a free slot for a new execution, assigning it the next
// monotonic id. It returns an error if the table is full. call_tool
// calls it after the child has started (it needs the pid) and checks
// HasCapacity before spawning; a child whose Track fails runs untracked.
func (t *Tracker) Track(toolName, clientID string, childPID int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].used {
			continue
		}
		t.counter++
		id := fmt.Sprintf("%d", t.counter)
		t.slots[i] = slot{
			used: true,
			record: Record{
				ID:        id,
				ToolName:  toolName,
				ClientID:  clientID,
				ChildPID:  childPID,
				StartTime: time.Now(),
				Status:    StatusRunning,
			},
		}
		return id, nil
	}
	return "", fmt.Errorf("tracking full")
}

// Update sets the status of an existing record. It is a no-op (reporting
// false) if id is unknown.
func (t *Tracker) Update(id string, status int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].record.ID == id {
			t.slots[i].record.Status = status
			return true
		}
	}
	return false
}

// HasCapacity reports whether at least one slot is currently free. It is
// a point-in-time check — call_tool uses it to avoid forking a child
// when the table is already saturated, but a concurrent Track can still
// race it, in which case Track itself is the authoritative check.
func (t *Tracker) HasCapacity() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if !t.slots[i].used {
			return true
		}
	}
	return false
}

// Find returns a copy of the record for id, if tracked.
func (t *Tracker) Find(id string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].record.ID == id {
			return t.slots[i].record, true
		}
	}
	return Record{}, false
}

// Cleanup frees the slot for id once its child has been reaped.
func (t *Tracker) Cleanup(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].record.ID == id {
			t.slots[i] = slot{}
			return
		}
	}
}
