package editor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/contentstream/editor"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
)

func newPage(t *testing.T, content string) *semantic.Page {
	t.Helper()
	ops, err := semantic.ParseContent([]byte(content))
	require.NoError(t, err)
	res := semantic.NewResources()
	res.Fonts["F1"] = fonts.NewResolver().Font("Helvetica")
	return &semantic.Page{
		MediaBox:  semantic.Rectangle{URX: 612, URY: 792},
		Resources: res,
		Contents:  []semantic.ContentStream{{Operations: ops}},
	}
}

func trace(t *testing.T, p *semantic.Page) *contentstream.Result {
	t.Helper()
	res, err := contentstream.NewTracer().TracePage(context.Background(), p)
	require.NoError(t, err)
	return res
}

func TestClearTextKeepsFollowingPositions(t *testing.T) {
	page := newPage(t, "BT /F1 12 Tf 72 700 Td (Total:) Tj ( $1,250.00) Tj ET 0 0 1 rg 10 10 50 50 re f")
	before := trace(t, page)
	require.Len(t, before.Spans, 2)

	// Device rect around "Total:" only; y is measured from the top.
	dev := page.ToDevice(before.Spans[0].BBox)
	res, err := editor.NewEditor().ClearText(context.Background(), page, dev)
	require.NoError(t, err)
	assert.Equal(t, []string{"Total:"}, res.RemovedText)

	// The placeholder shows no glyphs, so only the amount is traced.
	after := trace(t, page)
	require.Len(t, after.Spans, 1)
	assert.Equal(t, " $1,250.00", after.Spans[0].Text)
	assert.InDelta(t, before.Spans[1].Origin.X, after.Spans[0].Origin.X, 1e-3)

	// The filled rectangle survives.
	var fills int
	for _, op := range page.Contents[0].Operations {
		if op.Operator == "f" {
			fills++
		}
	}
	assert.Equal(t, 1, fills)
}

func TestClearTextQuoteOperators(t *testing.T) {
	page := newPage(t, "BT /F1 10 Tf 12 TL 50 500 Td (a) Tj (b) ' 1 0 (c) \" (d) ' ET")
	before := trace(t, page)
	require.Len(t, before.Spans, 4)

	rects := []coords.Rect{page.ToDevice(before.Spans[1].BBox), page.ToDevice(before.Spans[2].BBox)}
	res, err := editor.NewEditor().ClearText(context.Background(), page, rects...)
	require.NoError(t, err)
	assert.Len(t, res.RemovedOps, 2)

	after := trace(t, page)
	var last contentstream.Span
	for _, s := range after.Spans {
		if s.Text == "d" {
			last = s
		}
	}
	assert.InDelta(t, before.Spans[3].Origin.Y, last.Origin.Y, 1e-9)
	assert.InDelta(t, before.Spans[3].Origin.X, last.Origin.X, 1e-9)
}

func TestClearTextPartialOverlap(t *testing.T) {
	page := newPage(t, "BT /F1 12 Tf 72 700 Td (Hello world) Tj ET")
	span := trace(t, page).Spans[0]
	box := page.ToDevice(span.BBox)

	// A sliver on the far right covers far less than half the op.
	sliver := coords.NewRect(box.X1-2, box.Y0, box.X1+10, box.Y1)
	res, err := editor.NewEditor().ClearText(context.Background(), page, sliver)
	require.NoError(t, err)
	assert.Empty(t, res.RemovedOps)
	assert.Equal(t, "Hello world", trace(t, page).Spans[0].Text)
}

func TestClearTextKeepsAnnotations(t *testing.T) {
	page := newPage(t, "BT /F1 12 Tf 72 700 Td (Note) Tj ET")
	page.Annotations = []semantic.Annotation{
		&semantic.MarkupAnnotation{BaseAnnotation: semantic.BaseAnnotation{Type: "Highlight", Rect: semantic.Rectangle{LLX: 70, LLY: 695, URX: 110, URY: 712}}},
		&semantic.GenericAnnotation{BaseAnnotation: semantic.BaseAnnotation{Type: "Link", Rect: semantic.Rectangle{LLX: 300, LLY: 100, URX: 400, URY: 120}}},
	}
	dev := page.ToDevice(trace(t, page).Spans[0].BBox)
	res, err := editor.NewEditor().ClearText(context.Background(), page, dev)
	require.NoError(t, err)
	assert.Equal(t, []string{"Note"}, res.RemovedText)
	require.Len(t, page.Annotations, 2)
	assert.Equal(t, "Highlight", page.Annotations[0].Subtype())
	assert.Equal(t, "Link", page.Annotations[1].Subtype())
}

func TestClearTextNoRects(t *testing.T) {
	page := newPage(t, "BT /F1 12 Tf 72 700 Td (Keep) Tj ET")
	res, err := editor.NewEditor().ClearText(context.Background(), page)
	require.NoError(t, err)
	assert.Empty(t, res.RemovedOps)
	assert.Len(t, page.Contents[0].Operations, 5)
}

func TestQuadTreeQuery(t *testing.T) {
	qt := editor.NewQuadTree(semantic.Rectangle{URX: 100, URY: 100}, 2)
	qt.Insert(semantic.Rectangle{LLX: 1, LLY: 1, URX: 5, URY: 5}, 0)
	qt.Insert(semantic.Rectangle{LLX: 60, LLY: 60, URX: 70, URY: 70}, 1)
	qt.Insert(semantic.Rectangle{LLX: 40, LLY: 40, URX: 60, URY: 60}, 2)
	qt.Insert(semantic.Rectangle{LLX: 80, LLY: 5, URX: 90, URY: 10}, 3)
	qt.Insert(semantic.Rectangle{LLX: 200, LLY: 200, URX: 210, URY: 210}, 4)

	assert.Equal(t, []int{1, 2}, qt.Query(semantic.Rectangle{LLX: 55, LLY: 55, URX: 65, URY: 65}))
	assert.Equal(t, []int{0}, qt.Query(semantic.Rectangle{LLX: 0, LLY: 0, URX: 2, URY: 2}))
	assert.Equal(t, []int{4}, qt.Query(semantic.Rectangle{LLX: 205, LLY: 205, URX: 300, URY: 300}))
}
