// Package editor applies destructive edits to page content streams.
package editor

import (
	"context"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
)

// Editor clears page content by region.
type Editor interface {
	// ClearText removes the text painted inside the device-space rects.
	// Graphics, images and annotations are kept.
	ClearText(ctx context.Context, page *semantic.Page, rects ...coords.Rect) (ClearResult, error)
}

// SpatialIndex indexes content stream operations by their bounding box.
type SpatialIndex interface {
	Index(ctx context.Context, ops []semantic.Operation, resources *semantic.Resources) error
	Query(rect semantic.Rectangle) []int
}

// ClearResult reports what a clear removed.
type ClearResult struct {
	RemovedOps  []int
	RemovedText []string
}
