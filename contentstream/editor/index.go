package editor

import (
	"context"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/ir/semantic"
)

// OpSpatialIndex indexes the painting operations of one page.
type OpSpatialIndex struct {
	tree  *QuadTree
	trace *contentstream.Result
}

func NewOpSpatialIndex(pageBounds semantic.Rectangle) *OpSpatialIndex {
	return &OpSpatialIndex{tree: NewQuadTree(pageBounds, 10)}
}

// Index traces ops and indexes every box found.
func (idx *OpSpatialIndex) Index(ctx context.Context, ops []semantic.Operation, resources *semantic.Resources) error {
	res, err := contentstream.NewTracer().Trace(ctx, ops, resources)
	if err != nil {
		return err
	}
	idx.trace = res
	for _, b := range res.Boxes {
		idx.tree.Insert(b.Rect, b.OpIndex)
	}
	return nil
}

// Query returns op indices whose boxes touch rect.
func (idx *OpSpatialIndex) Query(rect semantic.Rectangle) []int {
	return idx.tree.Query(rect)
}

// Trace returns the trace the index was built from.
func (idx *OpSpatialIndex) Trace() *contentstream.Result { return idx.trace }
