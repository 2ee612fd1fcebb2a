package cache

import (
	"testing"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// fakeClock advances under test control so window eviction is deterministic.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestWearWindowCorrectness(t *testing.T) {
	clock := newFakeClock()
	c := NewWearCache(clock.now)

	// Sample at t0 with HR 100, then 40s later one with HR 60. The first
	// sample must have aged out of the 30s micro window but still count in
	// the 5m short window.
	c.AddSample(WearSample{Timestamp: clock.now(), HeartRate: f64(100)})
	clock.advance(40 * time.Second)
	c.AddSample(WearSample{Timestamp: clock.now(), HeartRate: f64(60)})

	micro, ok := c.Features(window.Micro, consent.CapabilityResearch)
	if !ok {
		t.Fatal("expected micro features")
	}
	if micro.SampleCount != 1 {
		t.Fatalf("micro: expected 1 surviving sample, got %d", micro.SampleCount)
	}
	if *micro.HRMean != 60 {
		t.Fatalf("micro: expected mean 60, got %v", *micro.HRMean)
	}

	short, ok := c.Features(window.Short, consent.CapabilityResearch)
	if !ok {
		t.Fatal("expected short features")
	}
	if short.SampleCount != 2 {
		t.Fatalf("short: expected 2 samples, got %d", short.SampleCount)
	}
	if *short.HRMean != 80 {
		t.Fatalf("short: expected mean 80, got %v", *short.HRMean)
	}
}

func TestWindowBoundaryIsInclusive(t *testing.T) {
	clock := newFakeClock()
	c := NewWearCache(clock.now)

	// A sample timestamped exactly at now−W sits on the closed edge of
	// [now−W, now] and must survive eviction.
	c.AddSample(WearSample{Timestamp: clock.now(), HeartRate: f64(100)})
	clock.advance(window.Micro.Duration())
	c.AddSample(WearSample{Timestamp: clock.now(), HeartRate: f64(60)})

	micro, ok := c.Features(window.Micro, consent.CapabilityCore)
	if !ok {
		t.Fatal("expected micro features")
	}
	if micro.SampleCount != 2 {
		t.Fatalf("boundary sample evicted: expected 2 samples, got %d", micro.SampleCount)
	}
	if *micro.HRMean != 80 {
		t.Fatalf("expected mean 80 over both samples, got %v", *micro.HRMean)
	}
}

func TestWearOldSamplesNeverInfluenceAggregate(t *testing.T) {
	clock := newFakeClock()
	c := NewWearCache(clock.now)

	for i := 0; i < 10; i++ {
		c.AddSample(WearSample{Timestamp: clock.now(), HeartRate: f64(150)})
		clock.advance(time.Second)
	}
	// Let all of the above fall out of the micro window, then add one.
	clock.advance(time.Minute)
	c.AddSample(WearSample{Timestamp: clock.now(), HeartRate: f64(70)})

	f, ok := c.Features(window.Micro, consent.CapabilityCore)
	if !ok {
		t.Fatal("expected features")
	}
	if *f.HRMean != 70 || *f.HRMin != 70 || *f.HRMax != 70 {
		t.Fatalf("aged-out samples leaked into aggregate: %+v", f)
	}
}

func TestWearUnavailableFields(t *testing.T) {
	clock := newFakeClock()
	c := NewWearCache(clock.now)

	// Motion-only sample: HR and HRV fields must stay unset, not zero.
	c.AddSample(WearSample{Timestamp: clock.now(), Motion: f64(0.4)})

	f, ok := c.Features(window.Micro, consent.CapabilityResearch)
	if !ok {
		t.Fatal("expected features")
	}
	if f.HRMean != nil || f.RMSSD != nil {
		t.Fatal("expected unset HR/HRV fields for motion-only data")
	}
	if f.MotionIndex == nil || *f.MotionIndex != 0.4 {
		t.Fatalf("expected motion index 0.4, got %v", f.MotionIndex)
	}

	// A single RR-bearing sample with one interval is insufficient for HRV.
	c.AddSample(WearSample{Timestamp: clock.now(), RRIntervals: []float64{820}})
	f, _ = c.Features(window.Micro, consent.CapabilityResearch)
	if f.SDNN != nil {
		t.Fatal("expected unset SDNN with a single RR interval")
	}

	// A second interval crosses the threshold.
	c.AddSample(WearSample{Timestamp: clock.now(), RRIntervals: []float64{830}})
	f, _ = c.Features(window.Micro, consent.CapabilityResearch)
	if f.SDNN == nil || f.RRCount != 2 {
		t.Fatalf("expected HRV stats over 2 RR intervals, got %+v", f)
	}
}

func TestCapabilityFilteringAfterComputation(t *testing.T) {
	clock := newFakeClock()
	c := NewWearCache(clock.now)
	c.AddSample(WearSample{
		Timestamp:   clock.now(),
		HeartRate:   f64(72),
		RRIntervals: []float64{800, 810, 795},
		Motion:      f64(0.2),
	})

	if _, ok := c.Features(window.Micro, consent.CapabilityNone); ok {
		t.Fatal("none tier must expose nothing")
	}

	core, ok := c.Features(window.Micro, consent.CapabilityCore)
	if !ok {
		t.Fatal("expected core features")
	}
	if core.HRMean == nil || core.MotionIndex == nil {
		t.Fatal("core tier should expose basic aggregates")
	}
	if core.RMSSD != nil || core.MotionSpread != nil || core.RRCount != 0 {
		t.Fatal("core tier must not expose extended fields")
	}

	ext, _ := c.Features(window.Micro, consent.CapabilityExtended)
	if ext.RMSSD == nil {
		t.Fatal("extended tier should expose HRV")
	}
	if ext.RRCount != 0 {
		t.Fatal("RR count is research-only")
	}

	res, _ := c.Features(window.Micro, consent.CapabilityResearch)
	if res.RRCount != 3 {
		t.Fatalf("research tier: expected RRCount 3, got %d", res.RRCount)
	}

	// Filtering must not have touched the cached aggregate.
	again, _ := c.Features(window.Micro, consent.CapabilityResearch)
	if again.RMSSD == nil || again.RRCount != 3 {
		t.Fatal("filtering mutated the cached aggregate")
	}
}

func TestPhoneAggregate(t *testing.T) {
	clock := newFakeClock()
	c := NewPhoneCache(clock.now)

	on, off := true, false
	c.AddSample(PhoneSample{Timestamp: clock.now(), ScreenOn: &on, Unlock: true, Motion: f64(0.1)})
	clock.advance(5 * time.Second)
	c.AddSample(PhoneSample{Timestamp: clock.now(), ScreenOn: &off, Notification: true, Motion: f64(0.3)})
	clock.advance(5 * time.Second)
	c.AddSample(PhoneSample{Timestamp: clock.now(), ScreenOn: &on})

	f, ok := c.Features(window.Micro, consent.CapabilityExtended)
	if !ok {
		t.Fatal("expected phone features")
	}
	if !almostEqual(*f.ScreenOnRatio, 2.0/3.0) {
		t.Fatalf("screen ratio: expected 2/3, got %v", *f.ScreenOnRatio)
	}
	if !almostEqual(*f.UnlockRate, 2.0) { // 1 unlock over a 30s window
		t.Fatalf("unlock rate: expected 2/min, got %v", *f.UnlockRate)
	}
	if !almostEqual(*f.MotionIndex, 0.2) {
		t.Fatalf("motion index: expected 0.2, got %v", *f.MotionIndex)
	}
}

func TestPhoneRatesAreZeroValid(t *testing.T) {
	clock := newFakeClock()
	c := NewPhoneCache(clock.now)
	c.AddSample(PhoneSample{Timestamp: clock.now()})

	f, ok := c.Features(window.Micro, consent.CapabilityExtended)
	if !ok {
		t.Fatal("expected features")
	}
	if f.UnlockRate == nil || *f.UnlockRate != 0 {
		t.Fatal("no-event rate must be an explicit zero, not unavailable")
	}
	if f.ScreenOnRatio != nil {
		t.Fatal("unknown screen state must stay unavailable")
	}
}

func TestBehaviorAggregate(t *testing.T) {
	clock := newFakeClock()
	c := NewBehaviorCache(clock.now)

	// Three tap-bearing samples with even 5s gaps: regular cadence means
	// burstiness well below 0.5.
	for i := 0; i < 3; i++ {
		c.AddSample(BehaviorSample{Timestamp: clock.now(), Taps: 2, AppSwitches: 1})
		clock.advance(5 * time.Second)
	}
	c.AddSample(BehaviorSample{Timestamp: clock.now(), SessionBreak: true})

	f, ok := c.Features(window.Micro, consent.CapabilityExtended)
	if !ok {
		t.Fatal("expected behavior features")
	}
	if !almostEqual(*f.TapRate, 12.0) { // 6 taps over 30s
		t.Fatalf("tap rate: expected 12/min, got %v", *f.TapRate)
	}
	if !almostEqual(*f.AppSwitchRate, 6.0) {
		t.Fatalf("app switch rate: expected 6/min, got %v", *f.AppSwitchRate)
	}
	if f.Burstiness == nil {
		t.Fatal("expected burstiness with 3 tap-bearing samples")
	}
	if *f.Burstiness >= 0.5 {
		t.Fatalf("regular cadence should score below 0.5, got %v", *f.Burstiness)
	}
	if f.SessionFragmentation == nil || *f.SessionFragmentation == 0 {
		t.Fatal("expected non-zero fragmentation after a session break")
	}
}

func TestBehaviorBurstinessNeedsThreeEvents(t *testing.T) {
	clock := newFakeClock()
	c := NewBehaviorCache(clock.now)
	c.AddSample(BehaviorSample{Timestamp: clock.now(), Taps: 1})
	clock.advance(time.Second)
	c.AddSample(BehaviorSample{Timestamp: clock.now(), Taps: 1})

	f, ok := c.Features(window.Micro, consent.CapabilityExtended)
	if !ok {
		t.Fatal("expected features")
	}
	if f.Burstiness != nil {
		t.Fatal("burstiness needs at least 3 tap-bearing samples")
	}
}

func TestRecomputationIsDeterministic(t *testing.T) {
	build := func() *WearFeatures {
		clock := newFakeClock()
		c := NewWearCache(clock.now)
		for i := 0; i < 5; i++ {
			c.AddSample(WearSample{
				Timestamp:   clock.now(),
				HeartRate:   f64(float64(65 + i)),
				RRIntervals: []float64{800 + float64(i)},
			})
			clock.advance(time.Second)
		}
		f, _ := c.Features(window.Micro, consent.CapabilityResearch)
		return f
	}

	a, b := build(), build()
	if *a.HRMean != *b.HRMean || *a.RMSSD != *b.RMSSD || a.RRCount != b.RRCount {
		t.Fatal("identical sample sequences must produce identical aggregates")
	}
}
