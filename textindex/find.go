package textindex

import (
	"context"
	"fmt"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/observability"
)

// FindByRegion resolves the block a caller means by rough and hint.
// Candidates are blocks whose layout rectangle touches rough; when the
// index has none, the page is re-scanned first. A non-empty hint picks the
// best text match; otherwise, or when nothing matches well enough, the
// block whose center is closest to rough's wins.
func (x *Index) FindByRegion(ctx context.Context, doc *semantic.Document, pageIndex int, rough coords.Rect, hint string) (*Block, error) {
	candidates := x.within(pageIndex, rough)
	if len(candidates) == 0 {
		x.logger.Debug("no indexed block at region, rescanning page", observability.Int("page", pageIndex))
		if err := x.RebuildPage(ctx, pageIndex, doc); err != nil {
			return nil, err
		}
		candidates = x.within(pageIndex, rough)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, pageIndex)
	}
	if hint != "" {
		texts := make([]string, len(candidates))
		for i, b := range candidates {
			texts[i] = b.Text
		}
		if i, _ := x.matcher.Best(hint, texts); i >= 0 {
			return candidates[i], nil
		}
	}
	return closest(candidates, rough, func(b *Block) coords.Rect { return b.LayoutRect }), nil
}

// FindRun narrows a block to one of its runs the same way.
func (x *Index) FindRun(b *Block, rough coords.Rect, hint string) (*Run, bool) {
	var candidates []*Run
	for i := range b.Runs {
		if b.Runs[i].Rect.Intersects(rough) {
			candidates = append(candidates, &b.Runs[i])
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	if hint != "" {
		texts := make([]string, len(candidates))
		for i, r := range candidates {
			texts[i] = r.Text
		}
		if i, _ := x.matcher.Best(hint, texts); i >= 0 {
			return candidates[i], true
		}
	}
	return closest(candidates, rough, func(r *Run) coords.Rect { return r.Rect }), true
}

func (x *Index) within(pageIndex int, rough coords.Rect) []*Block {
	var out []*Block
	for _, b := range x.Blocks(pageIndex) {
		if b.LayoutRect.Intersects(rough) {
			out = append(out, b)
		}
	}
	return out
}

// closest returns the item nearest to rough by Manhattan distance between
// centers; the earlier item wins a tie.
func closest[T any](items []T, rough coords.Rect, rect func(T) coords.Rect) T {
	best := items[0]
	bestDist := rect(best).CenterDistance(rough)
	for _, it := range items[1:] {
		if d := rect(it).CenterDistance(rough); d < bestDist {
			best, bestDist = it, d
		}
	}
	return best
}
