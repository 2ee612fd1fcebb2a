package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/cache"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/collect"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/heads"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/journal"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/lifecycle"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/pipeline"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/replay"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/schedule"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/store"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/uplink"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region main

func main() {
	dbPath := envOr("FUSION_DB", "fusion_pipeline.db")
	collectorURL := envOr("COLLECTOR_URL", "http://localhost:8080")
	tenant := envOr("COLLECTOR_TENANT", "dev")
	secret := envOr("COLLECTOR_SECRET", "dev-secret")
	userID := envOr("FUSION_USER", "local-user")
	capLevel := consent.CapabilityLevel(envOr("CAPABILITY_LEVEL", "core"))

	kv, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer kv.Close()

	// Consent defaults to everything granted for local runs; a real host
	// bridges its consent UI into the mutable provider.
	cp := consent.NewMutableProvider(consent.Snapshot{
		Biosignals:  envBool("CONSENT_BIOSIGNALS", true),
		Behavior:    envBool("CONSENT_BEHAVIOR", true),
		Motion:      envBool("CONSENT_MOTION", true),
		CloudUpload: envBool("CONSENT_CLOUD_UPLOAD", true),
	})
	defer cp.Close()
	capp := consent.StaticCapability{Level: capLevel}

	wear := cache.NewWearCache(nil)
	phone := cache.NewPhoneCache(nil)
	behavior := cache.NewBehaviorCache(nil)
	collector := collect.NewCollector(wear, phone, behavior, cp, capp)

	signer := uplink.NewSigner(tenant, []byte(secret))
	client := uplink.NewClient(collectorURL, signer, userID, "linux", "", nil)
	conn := uplink.NewConnector(uplink.DefaultConfig(), client, cp, capp, uplink.NewManualConnectivity(true), kv)

	p := pipeline.New(collector, heads.NewChain(), conn, nil)
	if j, err := journal.New(kv.DB()); err != nil {
		log.Printf("cycle journal disabled: %v", err)
	} else {
		p.AttachJournal(j)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := schedule.New(nil, func(w window.Type) {
		p.Tick(ctx, w)
	})

	mgr := lifecycle.NewManager()
	mgr.Register(&lifecycle.FuncModule{ModuleName: "store"})
	mgr.Register(&lifecycle.FuncModule{
		ModuleName: "uplink",
		OnStart:    conn.Start,
		OnStop:     func() error { conn.Stop(); return nil },
	}, "store")
	mgr.Register(&lifecycle.FuncModule{
		ModuleName: "scheduler",
		OnStart:    func(context.Context) error { return sched.Start() },
		OnStop:     func() error { sched.Stop(); return nil },
	}, "uplink")

	if err := mgr.Init(ctx); err != nil {
		log.Fatalf("init: %v", err)
	}
	if err := mgr.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}

	fmt.Println("State fusion pipeline ready.")
	fmt.Printf("  DB: %s | Collector: %s | Capability: %s\n", dbPath, collectorURL, capLevel)
	fmt.Println("Feed JSON samples on stdin, one per line (or 'quit' to exit):")

	go readSamples(wear, phone, behavior, cancel)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	log.Println("shutting down")
	if err := mgr.Stop(); err != nil {
		log.Printf("stop: %v", err)
	}
	if err := mgr.Dispose(); err != nil {
		log.Printf("dispose: %v", err)
	}
}

// #endregion main

// #region stdin

// readSamples ingests line-delimited JSON samples in the replay fixture
// sample shape. Stdin stands in for the host acquisition layer.
func readSamples(wear *cache.WearCache, phone *cache.PhoneCache, behavior *cache.BehaviorCache, quit context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			quit()
			return
		}

		var s replay.FixtureSample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			log.Printf("bad sample: %v", err)
			continue
		}
		if s.Timestamp.IsZero() {
			s.Timestamp = time.Now().UTC()
		}

		switch s.Source {
		case "wear":
			wear.AddSample(cache.WearSample{
				Timestamp:   s.Timestamp,
				HeartRate:   s.HeartRate,
				RRIntervals: s.RRIntervals,
				Motion:      s.Motion,
			})
		case "phone":
			phone.AddSample(cache.PhoneSample{
				Timestamp:    s.Timestamp,
				ScreenOn:     s.ScreenOn,
				Unlock:       s.Unlock,
				Notification: s.Notification,
				Motion:       s.Motion,
			})
		case "behavior":
			behavior.AddSample(cache.BehaviorSample{
				Timestamp:    s.Timestamp,
				Taps:         s.Taps,
				AppSwitches:  s.AppSwitches,
				SessionBreak: s.SessionBreak,
			})
		default:
			log.Printf("unknown source %q", s.Source)
		}
	}
}

// #endregion stdin

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// #endregion helpers
