package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to a JSON sample fixture")
	jsonOut := flag.Bool("json", false, "output per-cycle results as JSON")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--json]")
		os.Exit(2)
	}

	fixture, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	results, err := replay.Replay(fixture)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if fixture.Description != "" {
		fmt.Printf("fixture: %s\n", fixture.Description)
	}
	for _, r := range results {
		if r.Skipped {
			fmt.Printf("%s  %-8s skipped (no sources)\n", r.Timestamp.UTC().Format(time.RFC3339), r.Window)
			continue
		}
		fmt.Printf("%s  %-8s arousal=%s valence=%s motion=%s cadence=%s\n",
			r.Timestamp.UTC().Format(time.RFC3339), r.Window,
			fmtOpt(r.State.Axes.Affect.ArousalIndex),
			fmtOpt(r.State.Axes.Affect.ValenceStability),
			fmtOpt(r.State.Axes.Activity.MotionIndex),
			fmtOpt(r.State.Axes.Engagement.InteractionCadence))
	}

	s := replay.Summarize(fixture, results)
	fmt.Printf("cycles: %d produced, %d skipped (%d samples)\n", s.Produced, s.Skipped, s.Samples)
}

// #endregion main

// #region helpers

func fmtOpt(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}

// #endregion helpers
