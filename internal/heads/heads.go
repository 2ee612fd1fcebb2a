package heads

import (
	"context"
	"log"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/fuse"
)

// #region head

// Head is an opaque interpretation engine consuming a fused snapshot and
// returning a copy with its slot (emotion or focus) filled. Heads are
// external collaborators: the core never inspects what they compute.
type Head interface {
	Name() string
	Annotate(ctx context.Context, s fuse.FusedState) (fuse.FusedState, error)
}

// #endregion head

// #region chain

// Chain applies heads in registration order between fusion and upload.
// A failing head is logged and skipped; its slot simply stays empty, and
// the snapshot from the previous stage flows on unchanged. An empty chain
// is a pass-through.
type Chain struct {
	heads []Head
}

// NewChain creates a chain over the given heads (possibly none).
func NewChain(heads ...Head) *Chain {
	return &Chain{heads: heads}
}

// Run annotates s through every head. Copy-on-write snapshots keep the
// input untouched for concurrent readers.
func (c *Chain) Run(ctx context.Context, s fuse.FusedState) fuse.FusedState {
	for _, h := range c.heads {
		annotated, err := h.Annotate(ctx, s)
		if err != nil {
			log.Printf("[HEADS] %s failed, slot left empty: %v", h.Name(), err)
			continue
		}
		s = annotated
	}
	return s
}

// #endregion chain
