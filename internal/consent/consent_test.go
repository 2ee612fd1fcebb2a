package consent

import "testing"

func TestMutableProviderSetAndObserve(t *testing.T) {
	p := NewMutableProvider(Snapshot{Biosignals: true, CloudUpload: true})
	defer p.Close()

	if !p.Current().Biosignals {
		t.Fatal("expected initial biosignals consent")
	}

	ch := p.Observe()
	p.Set(Snapshot{Biosignals: true, CloudUpload: false})

	got := <-ch
	if got.CloudUpload {
		t.Fatal("expected revoked cloud upload in observed snapshot")
	}
	if !p.Current().Biosignals {
		t.Fatal("biosignals consent should be unchanged")
	}
}

func TestObserverNeverBlocksSet(t *testing.T) {
	p := NewMutableProvider(Snapshot{})
	defer p.Close()

	p.Observe() // never drained
	for i := 0; i < 16; i++ {
		p.Set(Snapshot{Motion: i%2 == 0})
	}
	// Reaching here without deadlock is the assertion.
}

func TestCapabilityOrdering(t *testing.T) {
	order := []CapabilityLevel{CapabilityNone, CapabilityCore, CapabilityExtended, CapabilityResearch}
	for i := 1; i < len(order); i++ {
		if !order[i].AtLeast(order[i-1]) {
			t.Fatalf("%s should grant at least %s", order[i], order[i-1])
		}
		if order[i-1].AtLeast(order[i]) {
			t.Fatalf("%s should not grant %s", order[i-1], order[i])
		}
	}
}

func TestStaticCapability(t *testing.T) {
	p := StaticCapability{Level: CapabilityExtended}
	if got := p.Capability("anything"); got != CapabilityExtended {
		t.Fatalf("expected extended, got %s", got)
	}
}
