// Package journal persists per-cycle pipeline decisions to the SQLite
// store for after-the-fact inspection. Journaling is best-effort: a
// write failure is logged and never fails the cycle that produced it.
package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region entry

// Decision labels for a cycle outcome.
const (
	DecisionFused        = "fused"
	DecisionSkippedEmpty = "skipped_empty"
	DecisionSkippedBusy  = "skipped_busy"
	DecisionDroppedError = "dropped_error"
)

// CycleEntry is a single row in the cycle_log table.
type CycleEntry struct {
	Window     window.Type
	SnapshotID string // empty unless the cycle fused
	Decision   string
	Sources    []string // source names present this cycle
	Reason     string
	CreatedAt  time.Time
}

// #endregion entry

// #region journal

// Journal writes cycle entries to a SQLite handle shared with the KV
// store.
type Journal struct {
	db *sql.DB
}

// New creates the cycle_log table if needed and returns a journal over
// the given handle.
func New(db *sql.DB) (*Journal, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cycle_log (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			window      TEXT NOT NULL,
			snapshot_id TEXT,
			decision    TEXT NOT NULL,
			sources     TEXT,
			reason      TEXT,
			created_at  TEXT NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("create cycle_log: %w", err)
	}
	return &Journal{db: db}, nil
}

// Log writes one cycle entry.
func (j *Journal) Log(entry CycleEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.Exec(
		`INSERT INTO cycle_log (window, snapshot_id, decision, sources, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(entry.Window),
		nullIfEmpty(entry.SnapshotID),
		entry.Decision,
		nullIfEmpty(strings.Join(entry.Sources, ",")),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log cycle: %w", err)
	}
	return nil
}

// Recent returns the n most recent entries, newest first.
func (j *Journal) Recent(n int) ([]CycleEntry, error) {
	rows, err := j.db.Query(
		`SELECT window, snapshot_id, decision, sources, reason, created_at
		 FROM cycle_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query cycle_log: %w", err)
	}
	defer rows.Close()

	var entries []CycleEntry
	for rows.Next() {
		var e CycleEntry
		var snapshotID, sources, reason sql.NullString
		var w, createdAt string
		if err := rows.Scan(&w, &snapshotID, &e.Decision, &sources, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan cycle_log: %w", err)
		}
		e.Window = window.Type(w)
		e.SnapshotID = snapshotID.String
		e.Reason = reason.String
		if sources.String != "" {
			e.Sources = strings.Split(sources.String, ",")
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion journal

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
