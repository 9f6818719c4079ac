package reflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/textindex"
)

// Device tops and bottoms with 12pt Helvetica: a baseline at device y
// spans [y-9.6, y+2.4].
const content = `BT /F1 12 Tf 72 350 Td (Heading) Tj ET
BT /F1 12 Tf 72 330 Td (Body text) Tj ET
BT /F1 12 Tf 72 15 Td (Footer) Tj ET
BT /F1 12 Tf 400 330 Td (Side) Tj ET`

func fixture(t *testing.T) (*semantic.Document, *textindex.Index) {
	t.Helper()
	ops, err := semantic.ParseContent([]byte(content))
	require.NoError(t, err)
	res := semantic.NewResources()
	res.Fonts["F1"] = fonts.NewResolver().Font("Helvetica")
	page := &semantic.Page{
		MediaBox:  semantic.Rectangle{URX: 500, URY: 400},
		Resources: res,
		Contents:  []semantic.ContentStream{{Operations: ops}},
		Annotations: []semantic.Annotation{
			&semantic.MarkupAnnotation{
				BaseAnnotation: semantic.BaseAnnotation{Type: "Highlight", Rect: semantic.Rectangle{LLX: 72, LLY: 328, URX: 120, URY: 340}},
			},
		},
	}
	doc := &semantic.Document{Pages: []*semantic.Page{page}}
	idx := textindex.New()
	require.NoError(t, idx.Build(context.Background(), doc))
	require.Len(t, idx.Blocks(0), 4)
	return doc, idx
}

func TestPlanCascade(t *testing.T) {
	doc, idx := fixture(t)
	e := New(idx, nil)
	heading := idx.Blocks(0)[0]

	res := e.Plan(doc.Pages[0], heading.LayoutRect.Y1, 90, XRange{X0: 60, X1: 300})
	require.Len(t, res.Moved, 1)
	m := res.Moved[0]
	assert.Equal(t, "p0-b1", m.BlockID)
	assert.InDelta(t, 92, m.To.Y0, 1e-6)
	assert.InDelta(t, m.From.Height(), m.To.Height(), 1e-9)
	assert.Empty(t, res.Skipped)
}

func TestPlanSkipsPastBottom(t *testing.T) {
	doc, idx := fixture(t)
	e := New(idx, nil)
	heading := idx.Blocks(0)[0]

	res := e.Plan(doc.Pages[0], heading.LayoutRect.Y1, 380, XRange{X0: 60, X1: 300})
	assert.Equal(t, []string{"p0-b1"}, res.IDs())
	assert.Equal(t, []string{"p0-b2"}, res.Skipped)
}

func TestPushDown(t *testing.T) {
	doc, idx := fixture(t)
	page := doc.Pages[0]
	e := New(idx, nil, WithGap(2))
	heading := idx.Blocks(0)[0]
	body := idx.Blocks(0)[1]
	from := body.LayoutRect

	res, err := e.PushDown(context.Background(), page, heading.LayoutRect.Y1, 90, XRange{X0: 60, X1: 300})
	require.NoError(t, err)
	require.Equal(t, []string{"p0-b1"}, res.IDs())
	dy := res.Moved[0].To.Y0 - from.Y0

	// The index follows the move.
	assert.InDelta(t, 92, body.LayoutRect.Y0, 1e-6)
	assert.Equal(t, from, body.Rect())

	spans, err := extractor.New().Spans(context.Background(), page)
	require.NoError(t, err)
	byText := map[string]extractor.Span{}
	for _, s := range spans {
		byText[s.Text] = s
	}
	require.Contains(t, byText, "Body text")
	assert.InDelta(t, 70+dy, byText["Body text"].Origin.Y, 1e-3)
	assert.InDelta(t, 72, byText["Body text"].Origin.X, 1e-3)
	assert.InDelta(t, 50, byText["Heading"].Origin.Y, 1e-3)
	assert.InDelta(t, 70, byText["Side"].Origin.Y, 1e-3)
	assert.InDelta(t, 385, byText["Footer"].Origin.Y, 1e-3)
	assert.Len(t, spans, 4)

	// The highlight over the body moved with it.
	require.Len(t, page.Annotations, 1)
	got := page.ToDevice(page.Annotations[0].Base().Rect)
	assert.InDelta(t, 60+dy, got.Y0, 1e-6)
}

func TestPushDownNothingToMove(t *testing.T) {
	doc, idx := fixture(t)
	page := doc.Pages[0]
	before := semantic.CloneOperations(page.Contents[0].Operations)

	res, err := New(idx, nil).PushDown(context.Background(), page, 0, 20, XRange{X0: 0, X1: 500})
	require.NoError(t, err)
	assert.Empty(t, res.Moved)
	assert.Equal(t, before, page.Contents[0].Operations)
}

func TestOwner(t *testing.T) {
	moved := []Move{
		{From: coords.Rect{X0: 0, Y0: 0, X1: 100, Y1: 10}},
		{From: coords.Rect{X0: 0, Y0: 20, X1: 100, Y1: 30}},
	}
	assert.Equal(t, 1, owner(moved, coords.Rect{X0: 10, Y0: 21, X1: 20, Y1: 29}))
	assert.Equal(t, 0, owner(moved, coords.Rect{X0: 10, Y0: 1, X1: 20, Y1: 9}))
}
