package edit

import (
	"context"
	"fmt"

	"github.com/wudi/pdfedit/builder"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/overlap"
)

// Page-level operations. Page positions are zero-based; each operation
// re-indexes the whole document.

// InsertPage adds a blank page at position at. A zero size copies the size
// of the page it is inserted before (or after, at the end).
func (e *Engine) InsertPage(ctx context.Context, at int, width, height float64) error {
	const op = "insert page"
	if at < 0 || at > len(e.doc.Pages) {
		return fail(ErrNotFound, at, op, fmt.Errorf("position %d of %d", at, len(e.doc.Pages)))
	}
	if width <= 0 || height <= 0 {
		ref := e.doc.Pages[min(at, len(e.doc.Pages)-1)]
		width, height = ref.Width(), ref.Height()
	}
	page := builder.NewBuilder(e.resolver).NewPage(width, height).Page()

	e.doc.Pages = append(e.doc.Pages, nil)
	copy(e.doc.Pages[at+1:], e.doc.Pages[at:])
	e.doc.Pages[at] = page
	e.remapDirty(func(i int) (int, bool) {
		if i >= at {
			return i + 1, true
		}
		return i, true
	})
	return e.reindex(ctx, op, at)
}

// DeletePage removes page i. The last page cannot be deleted.
func (e *Engine) DeletePage(ctx context.Context, i int) error {
	const op = "delete page"
	if _, err := e.page(op, i); err != nil {
		return err
	}
	if len(e.doc.Pages) == 1 {
		return fail(ErrAborted, i, op, fmt.Errorf("cannot delete the only page"))
	}
	e.doc.Pages = append(e.doc.Pages[:i], e.doc.Pages[i+1:]...)
	e.remapDirty(func(j int) (int, bool) {
		switch {
		case j == i:
			return 0, false
		case j > i:
			return j - 1, true
		}
		return j, true
	})
	return e.reindex(ctx, op, i)
}

// RotatePage turns page i clockwise by degrees, a multiple of 90.
func (e *Engine) RotatePage(ctx context.Context, i, degrees int) error {
	const op = "rotate page"
	page, err := e.page(op, i)
	if err != nil {
		return err
	}
	if degrees%90 != 0 {
		return fail(ErrAborted, i, op, fmt.Errorf("rotation %d is not a multiple of 90", degrees))
	}
	page.Rotate = coords.NormalizeRotation(page.Rotate + degrees)
	return e.reindex(ctx, op, i)
}

// MovePage moves page from to position to.
func (e *Engine) MovePage(ctx context.Context, from, to int) error {
	const op = "move page"
	page, err := e.page(op, from)
	if err != nil {
		return err
	}
	if to < 0 || to >= len(e.doc.Pages) {
		return fail(ErrNotFound, to, op, fmt.Errorf("position %d of %d", to, len(e.doc.Pages)))
	}
	if from == to {
		return nil
	}
	pages := make([]*semantic.Page, 0, len(e.doc.Pages))
	pages = append(pages, e.doc.Pages[:from]...)
	pages = append(pages, e.doc.Pages[from+1:]...)
	pages = append(pages[:to], append([]*semantic.Page{page}, pages[to:]...)...)
	e.doc.Pages = pages
	e.remapDirty(func(j int) (int, bool) {
		switch {
		case j == from:
			return to, true
		case from < to && j > from && j <= to:
			return j - 1, true
		case to < from && j >= to && j < from:
			return j + 1, true
		}
		return j, true
	})
	return e.reindex(ctx, op, to)
}

// AddAnnotation places the annotation d describes on page i.
func (e *Engine) AddAnnotation(ctx context.Context, i int, d overlap.Descriptor) error {
	const op = "add annotation"
	page, err := e.page(op, i)
	if err != nil {
		return err
	}
	a, err := overlap.Build(page, d)
	if err != nil {
		return fail(ErrAborted, i, op, err)
	}
	page.Annotations = append(page.Annotations, a)
	return e.reindex(ctx, op, i)
}

// AddHighlight highlights the text lines of page i that touch rect. With no
// text there, rect itself is highlighted.
func (e *Engine) AddHighlight(ctx context.Context, i int, rect coords.Rect, color []float64) error {
	const op = "add highlight"
	page, err := e.page(op, i)
	if err != nil {
		return err
	}
	blocks, err := e.ext.Blocks(ctx, page)
	if err != nil {
		return fail(ErrAborted, i, op, err)
	}
	d := overlap.Descriptor{Kind: overlap.KindHighlight, Color: color}
	if d.Color == nil {
		d.Color = []float64{1, 1, 0}
	}
	for _, b := range blocks {
		for _, l := range b.Lines {
			box := l.BBox.Intersect(rect)
			if box.IsEmpty() {
				continue
			}
			box.Y0, box.Y1 = l.BBox.Y0, l.BBox.Y1
			d.Rect = unionOrFirst(d.Rect, box)
			d.QuadPoints = append(d.QuadPoints,
				coords.Point{X: box.X0, Y: box.Y0}, coords.Point{X: box.X1, Y: box.Y0},
				coords.Point{X: box.X0, Y: box.Y1}, coords.Point{X: box.X1, Y: box.Y1})
		}
	}
	if len(d.QuadPoints) == 0 {
		d.Rect = rect
	}
	return e.AddAnnotation(ctx, i, d)
}

func unionOrFirst(acc, r coords.Rect) coords.Rect {
	if acc.IsEmpty() {
		return r
	}
	return acc.Union(r)
}

func (e *Engine) reindex(ctx context.Context, op string, page int) error {
	renumber(e.doc)
	if err := e.index.Build(ctx, e.doc); err != nil {
		return fail(ErrAborted, page, op, err)
	}
	return nil
}

func (e *Engine) remapDirty(fn func(int) (int, bool)) {
	next := make(map[int]bool, len(e.dirty))
	for i := range e.dirty {
		if j, ok := fn(i); ok {
			next[j] = true
		}
	}
	e.dirty = next
}
