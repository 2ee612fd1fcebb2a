package uplink

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/fuse"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/store"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

func entry(id string, w window.Type) Entry {
	return Entry{
		ID:         id,
		State:      fuse.FusedState{SchemaVersion: fuse.SchemaVersion, ID: id, Window: w},
		EnqueuedAt: time.Now().UTC(),
	}
}

func TestQueueBoundEvictsOldest(t *testing.T) {
	q := NewQueue(3, nil)
	for i := 1; i <= 4; i++ {
		q.Enqueue(entry(fmt.Sprintf("s%d", i), window.Micro))
	}

	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}
	entries := q.Entries()
	if entries[0].ID != "s2" || entries[2].ID != "s4" {
		t.Fatalf("expected oldest evicted, got %v..%v", entries[0].ID, entries[2].ID)
	}
}

func TestDequeueConfirmRequeue(t *testing.T) {
	q := NewQueue(10, nil)
	for i := 1; i <= 4; i++ {
		q.Enqueue(entry(fmt.Sprintf("s%d", i), window.Micro))
	}

	batch := q.DequeueBatch(window.Micro, 2)
	if len(batch) != 2 || batch[0].ID != "s1" || batch[1].ID != "s2" {
		t.Fatalf("expected prefix [s1 s2] in insertion order, got %v", batch)
	}
	if q.Len() != 4 {
		t.Fatalf("dequeued entries stay queued until confirmed, got len %d", q.Len())
	}

	// Failure path: requeue leaves the queue untouched.
	q.RequeueBatch()
	if q.Len() != 4 {
		t.Fatalf("requeue must leave length unchanged, got %d", q.Len())
	}
	if got := q.DequeueBatch(window.Micro, 2); got[0].ID != "s1" {
		t.Fatalf("requeued batch must retry from the front, got %v", got[0].ID)
	}

	// Success path: confirm removes exactly the dequeued prefix.
	q.ConfirmBatch()
	if q.Len() != 2 {
		t.Fatalf("expected 2 after confirm, got %d", q.Len())
	}
	if rest := q.Entries(); rest[0].ID != "s3" || rest[1].ID != "s4" {
		t.Fatalf("expected [s3 s4] to remain, got %v", rest)
	}
}

func TestSingleBatchInFlight(t *testing.T) {
	q := NewQueue(10, nil)
	q.Enqueue(entry("s1", window.Micro))
	q.Enqueue(entry("s2", window.Micro))

	if got := q.DequeueBatch(window.Micro, 1); len(got) != 1 {
		t.Fatalf("expected one entry, got %v", got)
	}
	if got := q.DequeueBatch(window.Micro, 1); got != nil {
		t.Fatalf("second dequeue before confirm must return nil, got %v", got)
	}
	q.ConfirmBatch()
	if got := q.DequeueBatch(window.Micro, 1); len(got) != 1 || got[0].ID != "s2" {
		t.Fatalf("expected s2 after confirm, got %v", got)
	}
}

func TestDequeueFiltersByLabel(t *testing.T) {
	q := NewQueue(10, nil)
	q.Enqueue(entry("m1", window.Micro))
	q.Enqueue(entry("l1", window.Long))
	q.Enqueue(entry("m2", window.Micro))

	batch := q.DequeueBatch(window.Micro, 10)
	if len(batch) != 2 || batch[0].ID != "m1" || batch[1].ID != "m2" {
		t.Fatalf("expected micro entries in order, got %v", batch)
	}
	q.ConfirmBatch()

	labels := q.Labels()
	if len(labels) != 1 || labels[0] != window.Long {
		t.Fatalf("expected only long label left, got %v", labels)
	}
}

func TestQueuePersistsAndRehydrates(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewStore(filepath.Join(dir, "queue.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	q := NewQueue(10, s)
	q.Enqueue(entry("s1", window.Micro))
	q.Enqueue(entry("s2", window.Short))
	s.Close()

	s2, err := store.NewStore(filepath.Join(dir, "queue.db"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	q2 := NewQueue(10, s2)
	if err := q2.Rehydrate(); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if q2.Len() != 2 {
		t.Fatalf("expected 2 rehydrated entries, got %d", q2.Len())
	}
	if got := q2.Entries(); got[0].ID != "s1" || got[0].State.Window != window.Micro {
		t.Fatalf("rehydrated entry mismatch: %+v", got[0])
	}
}
