package heads

import (
	"context"
	"errors"
	"testing"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/fuse"
)

type emotionHead struct{}

func (emotionHead) Name() string { return "emotion-test" }

func (emotionHead) Annotate(_ context.Context, s fuse.FusedState) (fuse.FusedState, error) {
	return s.WithEmotion(fuse.EmotionEstimate{Label: "calm", Confidence: 0.9, Model: "emotion-test"}), nil
}

type failingHead struct{}

func (failingHead) Name() string { return "failing" }

func (failingHead) Annotate(_ context.Context, s fuse.FusedState) (fuse.FusedState, error) {
	return fuse.FusedState{}, errors.New("model unavailable")
}

func TestChainFillsSlots(t *testing.T) {
	in := fuse.FusedState{ID: "snap-1"}
	out := NewChain(emotionHead{}).Run(context.Background(), in)

	if out.Emotion == nil || out.Emotion.Label != "calm" {
		t.Fatalf("expected emotion slot filled, got %+v", out.Emotion)
	}
	if in.Emotion != nil {
		t.Fatal("input snapshot must be untouched")
	}
}

func TestFailingHeadLeavesSlotEmpty(t *testing.T) {
	in := fuse.FusedState{ID: "snap-2"}
	out := NewChain(failingHead{}, emotionHead{}).Run(context.Background(), in)

	if out.ID != "snap-2" {
		t.Fatal("failing head must not replace the snapshot")
	}
	if out.Emotion == nil {
		t.Fatal("later heads still run after a failure")
	}
}

func TestEmptyChainIsPassThrough(t *testing.T) {
	in := fuse.FusedState{ID: "snap-3"}
	out := NewChain().Run(context.Background(), in)
	if out.ID != in.ID || out.Emotion != nil || out.Focus != nil {
		t.Fatal("empty chain must leave the snapshot unchanged")
	}
}
