package uplink

import (
	"testing"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

func TestFirstUploadAlwaysAllowed(t *testing.T) {
	r := NewRateLimiter(nil)
	for _, w := range window.All() {
		if !r.Allow(w) {
			t.Fatalf("first upload for %s must be allowed", w)
		}
	}
}

func TestSameLabelBlockedUntilIntervalElapses(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter(func() time.Time { return now })

	r.Record(window.Micro)
	if r.Allow(window.Micro) {
		t.Fatal("immediate second upload for the same label must be blocked")
	}
	if !r.Allow(window.Long) {
		t.Fatal("a different label is unaffected")
	}

	now = now.Add(29 * time.Second)
	if r.Allow(window.Micro) {
		t.Fatal("still inside the 30s micro interval")
	}
	now = now.Add(time.Second)
	if !r.Allow(window.Micro) {
		t.Fatal("interval elapsed, upload must be allowed")
	}
}

func TestBatchSizeScalesWithTier(t *testing.T) {
	if BatchSize(consent.CapabilityNone) != 0 {
		t.Fatal("none tier uploads nothing")
	}
	core := BatchSize(consent.CapabilityCore)
	ext := BatchSize(consent.CapabilityExtended)
	res := BatchSize(consent.CapabilityResearch)
	if !(core < ext && ext < res) {
		t.Fatalf("batch size must grow monotonically with tier: %d %d %d", core, ext, res)
	}
}

func TestLimiterExportRestore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter(func() time.Time { return now })
	r.Record(window.Medium)

	data, err := r.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	r2 := NewRateLimiter(func() time.Time { return now })
	if err := r2.Restore(data); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r2.Allow(window.Medium) {
		t.Fatal("restored limiter must still throttle the medium label")
	}
	if !r2.Allow(window.Micro) {
		t.Fatal("restored limiter must not invent state for other labels")
	}
}
