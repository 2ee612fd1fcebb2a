package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/journal"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/store"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/uplink"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to fusion_pipeline.db")
	last := flag.Int("last", 20, "show N most recent pipeline cycles")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/fusion_pipeline.db [--last N] [--json]")
		os.Exit(2)
	}

	kv, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	if err := run(kv, *last, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region report

type report struct {
	QueueLength int                    `json:"queue_length"`
	Backlog     []backlogRow           `json:"backlog"`
	LastUploads map[window.Type]string `json:"last_uploads"`
	Cycles      []journal.CycleEntry   `json:"cycles,omitempty"`
}

type backlogRow struct {
	ID         string      `json:"id"`
	Window     window.Type `json:"window"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
	Age        string      `json:"age"`
}

func run(kv *store.Store, last int, jsonOut bool) error {
	rep := report{LastUploads: make(map[window.Type]string)}

	if data, ok, err := kv.Read("uplink.queue"); err != nil {
		return fmt.Errorf("read queue: %w", err)
	} else if ok {
		var entries []uplink.Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parse queue: %w", err)
		}
		rep.QueueLength = len(entries)
		for _, e := range entries {
			rep.Backlog = append(rep.Backlog, backlogRow{
				ID:         e.ID,
				Window:     e.State.Window,
				EnqueuedAt: e.EnqueuedAt,
				Age:        time.Since(e.EnqueuedAt).Round(time.Second).String(),
			})
		}
	}

	if data, ok, err := kv.Read("uplink.limiter"); err != nil {
		return fmt.Errorf("read limiter: %w", err)
	} else if ok {
		var last map[window.Type]time.Time
		if err := json.Unmarshal(data, &last); err != nil {
			return fmt.Errorf("parse limiter: %w", err)
		}
		for w, t := range last {
			rep.LastUploads[w] = t.UTC().Format(time.RFC3339)
		}
	}

	if j, err := journal.New(kv.DB()); err == nil {
		if cycles, err := j.Recent(last); err == nil {
			rep.Cycles = cycles
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Printf("queued snapshots: %d\n", rep.QueueLength)
	for _, row := range rep.Backlog {
		fmt.Printf("  %-38s %-8s enqueued %s (%s ago)\n",
			row.ID, row.Window, row.EnqueuedAt.UTC().Format(time.RFC3339), row.Age)
	}
	if len(rep.LastUploads) > 0 {
		fmt.Println("last confirmed upload per window:")
		for _, w := range window.All() {
			if t, ok := rep.LastUploads[w]; ok {
				fmt.Printf("  %-8s %s\n", w, t)
			}
		}
	}
	if len(rep.Cycles) > 0 {
		fmt.Printf("recent cycles (%d):\n", len(rep.Cycles))
		for _, c := range rep.Cycles {
			fmt.Printf("  %s  %-8s %-14s %s\n",
				c.CreatedAt.UTC().Format(time.RFC3339), c.Window, c.Decision, strings.Join(c.Sources, ","))
		}
	}
	return nil
}

// #endregion report
