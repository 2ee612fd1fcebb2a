package uplink

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/fuse"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region entry

// Entry is one FusedState awaiting upload.
type Entry struct {
	ID         string          `json:"id"`
	State      fuse.FusedState `json:"state"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// #endregion entry

// #region persister

// Persister is the durable storage behind the queue. Satisfied by
// *store.Store.
type Persister interface {
	Read(key string) ([]byte, bool, error)
	Write(key string, value []byte) error
	Delete(key string) error
}

const queueKey = "uplink.queue"

// #endregion persister

// #region queue

// Queue is the bounded FIFO of snapshots awaiting upload. Insertion
// beyond capacity evicts the oldest entry (lossy backpressure, not
// blocking). A dequeued batch stays in the queue, marked in flight, until
// confirmed: entries are removed only on confirmed upload, and a failed
// batch returns to the front by simply unmarking it. All operations are
// serialized by one mutex, and the backing store is written after every
// mutation so a restart never loses backlogged snapshots.
type Queue struct {
	mu       sync.Mutex
	entries  []Entry
	inflight map[string]bool // entry IDs of the current in-flight batch
	maxSize  int
	store    Persister // nil disables persistence (tests)
}

// NewQueue creates a queue holding at most maxSize entries.
func NewQueue(maxSize int, store Persister) *Queue {
	return &Queue{
		inflight: make(map[string]bool),
		maxSize:  maxSize,
		store:    store,
	}
}

// #endregion queue

// #region rehydrate

// Rehydrate loads the persisted backlog. Must run before the connector
// starts accepting new uploads.
func (q *Queue) Rehydrate() error {
	if q.store == nil {
		return nil
	}
	data, ok, err := q.store.Read(queueKey)
	if err != nil {
		return fmt.Errorf("rehydrate queue: %w", err)
	}
	if !ok {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("rehydrate queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = entries
	if len(q.entries) > q.maxSize {
		q.entries = q.entries[len(q.entries)-q.maxSize:]
	}
	return nil
}

// #endregion rehydrate

// #region enqueue

// Enqueue appends e, evicting the oldest entry when over capacity: once
// the queue is saturated the oldest data is the least valuable. Returns
// true when an eviction happened.
func (q *Queue) Enqueue(e Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, e)
	evicted := false
	if len(q.entries) > q.maxSize {
		delete(q.inflight, q.entries[0].ID)
		q.entries = q.entries[1:]
		evicted = true
	}
	q.persistLocked()
	return evicted
}

// #endregion enqueue

// #region dequeue

// DequeueBatch marks up to max entries with the given window label as in
// flight, front first, preserving insertion order, and returns copies.
// Only one batch may be in flight at a time; a second call before
// ConfirmBatch or RequeueBatch returns nil.
func (q *Queue) DequeueBatch(label window.Type, max int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.inflight) > 0 || max <= 0 {
		return nil
	}

	var batch []Entry
	for _, e := range q.entries {
		if e.State.Window != label {
			continue
		}
		q.inflight[e.ID] = true
		batch = append(batch, e)
		if len(batch) == max {
			break
		}
	}
	return batch
}

// ConfirmBatch removes exactly the in-flight entries after a confirmed
// upload.
func (q *Queue) ConfirmBatch() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.inflight) == 0 {
		return
	}
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !q.inflight[e.ID] {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	q.inflight = make(map[string]bool)
	q.persistLocked()
}

// RequeueBatch returns a failed batch to the queue for retry. The entries
// never left their positions, so this only clears the in-flight mark and
// leaves the queue length unchanged.
func (q *Queue) RequeueBatch() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight = make(map[string]bool)
}

// #endregion dequeue

// #region accessors

// Len returns the number of queued entries, in flight included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Labels returns the distinct window labels present, in queue order.
func (q *Queue) Labels() []window.Type {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[window.Type]bool)
	var labels []window.Type
	for _, e := range q.entries {
		if !seen[e.State.Window] {
			seen[e.State.Window] = true
			labels = append(labels, e.State.Window)
		}
	}
	return labels
}

// Entries returns a copy of the backlog for inspection tooling.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Persist forces a write of the current backlog (used on shutdown).
func (q *Queue) Persist() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.persistLocked()
}

// #endregion accessors

// #region persist

// persistLocked writes the backlog to the store. Persistence failure is
// logged, not fatal: losing backlog on a broken store is the documented
// bounded-queue trade-off, and refusing new data would be worse.
func (q *Queue) persistLocked() {
	if q.store == nil {
		return
	}
	data, err := json.Marshal(q.entries)
	if err != nil {
		log.Printf("[UPLINK] marshal queue: %v", err)
		return
	}
	if err := q.store.Write(queueKey, data); err != nil {
		log.Printf("[UPLINK] persist queue: %v", err)
	}
}

// #endregion persist
